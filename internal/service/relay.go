package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smam/backend/internal/domain"
	"smam/backend/internal/fields"
	"smam/backend/internal/mailer"
)

// 提交结果，用作指标标签
const (
	ResultSent      = "sent"
	ResultInvalid   = "invalid"
	ResultForbidden = "forbidden"
	ResultFailed    = "failed"
	ResultError     = "error"
)

// TokenStore 令牌存储
type TokenStore interface {
	Issue(identity string) *domain.Token
	VerifyAndConsume(identity, value string) bool
}

// Dispatcher 邮件分发
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message, recipients []string) domain.Report
}

// Recorder 业务指标记录，可为 nil
type Recorder interface {
	RecordTokenIssued()
	RecordTokenCheck(ok bool)
	RecordSubmission(result string)
}

// RelayConfig 中继配置
type RelayConfig struct {
	From       string   // 固定发件人，为空时使用提交者
	Recipients []string // 全部收件人
}

// RelayService 封装表单提交到邮件投递的完整流程。
type RelayService struct {
	validator  *domain.Validator
	tokens     TokenStore
	normalizer *fields.Normalizer
	renderer   *mailer.Renderer
	dispatcher Dispatcher
	cfg        RelayConfig
	recorder   Recorder
	logger     *zap.Logger
}

// NewRelayService 创建中继服务。
func NewRelayService(
	tokens TokenStore,
	normalizer *fields.Normalizer,
	renderer *mailer.Renderer,
	dispatcher Dispatcher,
	cfg RelayConfig,
	recorder Recorder,
	logger *zap.Logger,
) *RelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayService{
		validator:  domain.NewValidator(),
		tokens:     tokens,
		normalizer: normalizer,
		renderer:   renderer,
		dispatcher: dispatcher,
		cfg:        cfg,
		recorder:   recorder,
		logger:     logger,
	}
}

// Fields 返回自定义字段定义
func (s *RelayService) Fields() []domain.CustomField {
	return s.normalizer.Definitions()
}

// Register 为 identity 签发一个新令牌。
func (s *RelayService) Register(identity string) *domain.Token {
	tok := s.tokens.Issue(identity)
	if s.recorder != nil {
		s.recorder.RecordTokenIssued()
	}
	s.logger.Debug("token issued", zap.String("identity", identity))
	return tok
}

// Send 校验提交并将邮件投递给全部收件人。
//
// 参数:
//   - ctx: 请求上下文
//   - identity: 提交者身份（客户端地址）
//   - sub: 表单提交
//
// 返回值:
//   - domain.Report: 投递结果，仅在进入分发后有意义
//   - error: domain.ErrValidation、domain.ErrForbidden、domain.ErrFieldConfig
//     或 domain.ErrDeliveryFailed
func (s *RelayService) Send(ctx context.Context, identity string, sub *domain.Submission) (domain.Report, error) {
	if err := s.validator.Validate(sub, s.normalizer.Definitions()); err != nil {
		s.record(ResultInvalid)
		return domain.Report{}, err
	}

	ok := s.tokens.VerifyAndConsume(identity, sub.Token)
	if s.recorder != nil {
		s.recorder.RecordTokenCheck(ok)
	}
	if !ok {
		s.record(ResultForbidden)
		s.logger.Info("submission rejected: invalid token", zap.String("identity", identity))
		return domain.Report{}, domain.ErrForbidden
	}

	values, err := s.normalizer.Normalize(sub.Custom)
	if err != nil {
		s.record(ResultError)
		s.logger.Error("custom field normalization failed", zap.Error(err))
		return domain.Report{}, err
	}

	msg, err := s.compose(sub, s.normalizer.Ordered(values))
	if err != nil {
		s.record(ResultError)
		s.logger.Error("mail rendering failed", zap.Error(err))
		return domain.Report{}, err
	}

	report := s.dispatcher.Dispatch(ctx, msg, s.cfg.Recipients)
	if report.AllFailed() {
		s.record(ResultFailed)
		s.logger.Error("submission not delivered",
			zap.String("identity", identity),
			zap.Int("recipients", report.Total))
		return report, fmt.Errorf("%w: %d of %d recipients", domain.ErrDeliveryFailed, report.Failed, report.Total)
	}

	s.record(ResultSent)
	s.logger.Info("submission delivered",
		zap.String("identity", identity),
		zap.Int("accepted", report.Total-report.Failed),
		zap.Int("rejected", report.Failed))
	return report, nil
}

func (s *RelayService) compose(sub *domain.Submission, values []domain.FieldValue) (domain.Message, error) {
	html, err := s.renderer.Render(mailer.RenderParams{
		Subject:     sub.Subject,
		FromName:    sub.Name,
		FromAddress: sub.Address,
		Text:        sub.Body,
		Fields:      values,
	})
	if err != nil {
		return domain.Message{}, err
	}

	submitter := domain.Mailbox(sub.Name, sub.Address)
	from := s.cfg.From
	if from == "" {
		from = submitter
	}

	return domain.Message{
		Subject: sub.Subject,
		From:    from,
		ReplyTo: submitter,
		HTML:    html,
	}, nil
}

func (s *RelayService) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordSubmission(result)
	}
}
