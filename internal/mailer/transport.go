// Package mailer 负责邮件的渲染、组装与向固定收件人列表的分发。
package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	gomail "github.com/go-mail/mail"
	"github.com/google/uuid"

	"smam/backend/internal/domain"
)

// Transport 外部邮件投递通道
//
// 每次调用只向一个收件人尝试投递一次，重试与 SMTP 语义由通道自身负责。
type Transport interface {
	Deliver(ctx context.Context, msg domain.Message, recipient string) error
}

// TransportFunc 函数适配器
type TransportFunc func(ctx context.Context, msg domain.Message, recipient string) error

// Deliver 实现 Transport
func (f TransportFunc) Deliver(ctx context.Context, msg domain.Message, recipient string) error {
	return f(ctx, msg, recipient)
}

// compose 使用 go-mail 组装单个收件人的 MIME 邮件
func compose(msg domain.Message, recipient string) (*gomail.Message, error) {
	m := gomail.NewMessage()

	if err := setAddress(m, "From", msg.From); err != nil {
		return nil, err
	}
	if msg.ReplyTo != "" {
		if err := setAddress(m, "Reply-To", msg.ReplyTo); err != nil {
			return nil, err
		}
	}
	if err := setAddress(m, "To", recipient); err != nil {
		return nil, err
	}

	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@smam>", uuid.NewString()))
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", msg.HTML)

	return m, nil
}

func setAddress(m *gomail.Message, header, value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", header, value, err)
	}
	m.SetAddressHeader(header, addr.Address, addr.Name)
	return nil
}

// envelopeAddress 返回用于 SMTP MAIL FROM 的纯地址
func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", fmt.Errorf("invalid envelope address %q: %w", value, err)
	}
	return addr.Address, nil
}
