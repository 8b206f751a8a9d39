package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smam"

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 令牌指标
	TokensIssued   prometheus.Counter
	TokensConsumed prometheus.Counter
	TokensRejected prometheus.Counter
	TokensSwept    prometheus.Counter
	TokensLive     prometheus.Gauge

	// 提交与投递指标
	SubmissionsTotal *prometheus.CounterVec
	DeliveriesTotal  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标，注册到独立的 Registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of submission tokens issued",
		}),

		TokensConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_consumed_total",
			Help:      "Total number of tokens redeemed by a submission",
		}),

		TokensRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_rejected_total",
			Help:      "Total number of submissions rejected for a missing, wrong or expired token",
		}),

		TokensSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_swept_total",
			Help:      "Total number of expired tokens removed by the sweep",
		}),

		TokensLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens_live",
			Help:      "Number of tokens held in memory after the last sweep",
		}),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of form submissions by result",
			},
			[]string{"result"},
		),

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Total number of per-recipient delivery attempts by outcome",
			},
			[]string{"outcome"},
		),

		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time to fan a message out to every recipient",
			Buckets:   prometheus.DefBuckets,
		}),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of recovered panics",
		}),
	}
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTokenIssued 记录令牌签发
func (m *Metrics) RecordTokenIssued() {
	m.TokensIssued.Inc()
}

// RecordTokenCheck 记录令牌校验结果
func (m *Metrics) RecordTokenCheck(ok bool) {
	if ok {
		m.TokensConsumed.Inc()
	} else {
		m.TokensRejected.Inc()
	}
}

// RecordSweep 记录一轮令牌清理
func (m *Metrics) RecordSweep(removed, live int) {
	m.TokensSwept.Add(float64(removed))
	m.TokensLive.Set(float64(live))
}

// RecordSubmission 记录提交结果（sent、invalid、forbidden、failed、error）
func (m *Metrics) RecordSubmission(result string) {
	m.SubmissionsTotal.WithLabelValues(result).Inc()
}

// ObserveDelivery 实现 mailer.Observer
func (m *Metrics) ObserveDelivery(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDispatch 实现 mailer.Observer
func (m *Metrics) ObserveDispatch(_, _ int, elapsed time.Duration) {
	m.DispatchDuration.Observe(elapsed.Seconds())
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus 指标处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
