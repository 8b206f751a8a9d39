package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"smam/backend/internal/domain"
)

// ResendTransport 通过 Resend API 投递邮件
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport 创建 Resend 投递通道
func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

// Deliver 实现 Transport
func (t *ResendTransport) Deliver(ctx context.Context, msg domain.Message, recipient string) error {
	if _, err := t.client.Emails.SendWithContext(ctx, resendRequest(msg, recipient)); err != nil {
		return fmt.Errorf("resend: send to %s: %w", recipient, err)
	}
	return nil
}

func resendRequest(msg domain.Message, recipient string) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{recipient},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
}
