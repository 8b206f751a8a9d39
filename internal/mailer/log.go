package mailer

import (
	"context"

	"go.uber.org/zap"

	"smam/backend/internal/domain"
)

// LogTransport 开发环境使用：只记录日志，视为投递成功
type LogTransport struct {
	log *zap.Logger
}

// NewLogTransport 创建日志投递通道
func NewLogTransport(log *zap.Logger) *LogTransport {
	return &LogTransport{log: log}
}

// Deliver 实现 Transport
func (t *LogTransport) Deliver(_ context.Context, msg domain.Message, recipient string) error {
	t.log.Info("mail not sent (log driver)",
		zap.String("to", recipient),
		zap.String("from", msg.From),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
