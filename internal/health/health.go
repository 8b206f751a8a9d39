package health

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

const (
	goroutineThreshold = 10000
	dialTimeout        = 3 * time.Second
)

// Checker 健康检查器
type Checker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewChecker 创建健康检查器
//
// 参数:
//   - smtpAddr: SMTP 中继地址，非空时加入就绪检查
//   - logger: 日志记录器
func NewChecker(smtpAddr string, logger *zap.Logger) *Checker {
	hc := &Checker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(goroutineThreshold))

	if smtpAddr != "" {
		hc.AddReadinessCheck("smtp", healthcheck.TCPDialCheck(smtpAddr, dialTimeout))
	}

	return hc
}

// AddReadinessCheck 追加就绪检查，失败时记录告警日志
func (hc *Checker) AddReadinessCheck(name string, check healthcheck.Check) {
	hc.health.AddReadinessCheck(name, func() error {
		if err := check(); err != nil {
			hc.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	})
}

// LiveHandler 存活检查处理器
func (hc *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(hc.health.LiveEndpoint)
}

// ReadyHandler 就绪检查处理器
func (hc *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(hc.health.ReadyEndpoint)
}
