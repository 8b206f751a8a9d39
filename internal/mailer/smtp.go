package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"smam/backend/internal/domain"
)

// TLS 模式
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModeNone     = "none"
)

// SMTPConfig SMTP 中继配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string        // starttls | tls | none
	Helo     string        // EHLO 使用的本机名，starttls 模式下不生效
	Timeout  time.Duration // 单条命令超时
}

// SMTPTransport 通过 SMTP 中继投递邮件
type SMTPTransport struct {
	cfg       SMTPConfig
	tlsConfig *tls.Config
	log       *zap.Logger
}

// NewSMTPTransport 创建 SMTP 投递通道
func NewSMTPTransport(cfg SMTPConfig, log *zap.Logger) *SMTPTransport {
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSModeStartTLS
	}
	if cfg.Helo == "" {
		cfg.Helo = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPTransport{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
		log:       log.With(zap.String("component", "smtp"), zap.String("host", cfg.Host)),
	}
}

// Addr 返回 host:port
func (t *SMTPTransport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Deliver 实现 Transport
//
// ctx 到期时立即返回错误，底层连接由命令超时兜底关闭。
func (t *SMTPTransport) Deliver(ctx context.Context, msg domain.Message, recipient string) error {
	done := make(chan error, 1)
	go func() {
		done <- t.send(msg, recipient)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp: deliver to %s: %w", recipient, ctx.Err())
	}
}

func (t *SMTPTransport) send(msg domain.Message, recipient string) error {
	from, err := envelopeAddress(msg.From)
	if err != nil {
		return err
	}
	to, err := envelopeAddress(recipient)
	if err != nil {
		return err
	}

	m, err := compose(msg, recipient)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if _, err := m.WriteTo(&body); err != nil {
		return fmt.Errorf("smtp: compose message: %w", err)
	}

	c, err := t.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := c.SendMail(from, []string{to}, &body); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", to, err)
	}

	if err := c.Quit(); err != nil {
		t.log.Debug("smtp quit failed", zap.Error(err))
	}
	return nil
}

func (t *SMTPTransport) dial() (*gosmtp.Client, error) {
	var (
		c   *gosmtp.Client
		err error
	)

	switch t.cfg.TLSMode {
	case TLSModeTLS:
		c, err = gosmtp.DialTLS(t.Addr(), t.tlsConfig)
	case TLSModeStartTLS:
		// DialStartTLS 已完成 EHLO，之后不能再调用 Hello
		c, err = gosmtp.DialStartTLS(t.Addr(), t.tlsConfig)
	default:
		c, err = gosmtp.Dial(t.Addr())
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", t.Addr(), err)
	}

	c.CommandTimeout = t.cfg.Timeout
	c.SubmissionTimeout = t.cfg.Timeout

	if t.cfg.TLSMode != TLSModeStartTLS {
		if err := c.Hello(t.cfg.Helo); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp: hello: %w", err)
		}
	}

	return c, nil
}
