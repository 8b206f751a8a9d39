package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"smam/backend/internal/domain"
)

// Observer 接收分发过程中的指标事件，可为 nil
type Observer interface {
	ObserveDelivery(accepted bool)
	ObserveDispatch(failed, total int, elapsed time.Duration)
}

// DispatcherConfig 分发器配置
type DispatcherConfig struct {
	AttemptTimeout time.Duration // 单个收件人投递超时，<=0 表示不限制
	MaxConcurrency int           // 并发上限，<=0 表示不限制
	RatePerSecond  float64       // 每秒最多发起的投递数，<=0 表示不限制
}

// Dispatcher 将一封邮件并发投递给全部收件人
//
// 每个收件人独立尝试一次，互不影响；Dispatch 等待全部结果后才返回。
type Dispatcher struct {
	transport Transport
	cfg       DispatcherConfig
	limiter   *rate.Limiter
	observer  Observer
	log       *zap.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(transport Transport, cfg DispatcherConfig, observer Observer, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		transport: transport,
		cfg:       cfg,
		observer:  observer,
		log:       log.With(zap.String("component", "dispatcher")),
	}
	if cfg.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return d
}

// Dispatch 向 recipients 投递 msg
//
// 请求上下文被取消不会中断分发：一旦开始，每个收件人都会被尝试。
//
// 返回值:
//   - domain.Report: 每个收件人的结果以及失败数/总数
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message, recipients []string) domain.Report {
	start := time.Now()
	parent := context.WithoutCancel(ctx)
	outcomes := make([]domain.Outcome, len(recipients))

	var g errgroup.Group
	if d.cfg.MaxConcurrency > 0 {
		g.SetLimit(d.cfg.MaxConcurrency)
	}

	for i, recipient := range recipients {
		g.Go(func() error {
			outcomes[i] = d.attempt(parent, msg, recipient)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.Report{Outcomes: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		if !o.Accepted {
			report.Failed++
		}
	}

	if d.observer != nil {
		d.observer.ObserveDispatch(report.Failed, report.Total, time.Since(start))
	}
	return report
}

func (d *Dispatcher) attempt(parent context.Context, msg domain.Message, recipient string) domain.Outcome {
	ctx := parent
	if d.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.cfg.AttemptTimeout)
		defer cancel()
	}

	err := d.wait(ctx)
	if err == nil {
		err = d.transport.Deliver(ctx, msg, recipient)
	}

	outcome := domain.Outcome{Recipient: recipient, Accepted: err == nil, Err: err}
	if err != nil {
		d.log.Warn("message failed to send", zap.String("recipient", recipient), zap.Error(err))
	} else {
		d.log.Info("message sent", zap.String("recipient", recipient))
	}

	if d.observer != nil {
		d.observer.ObserveDelivery(outcome.Accepted)
	}
	return outcome
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}
