// internal/metrics/metrics.go
// Prometheus 指標 - 請求受理與背景派送結果

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 請求結果
const (
	OutcomeAccepted    = "accepted"
	OutcomeDuplicate   = "duplicate"
	OutcomeInvalid     = "invalid"
	OutcomeRenderError = "render_error"
	OutcomeRejected    = "rejected"
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
)

// Metrics 服務指標
type Metrics struct {
	Registry *prometheus.Registry

	requests         *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	queueDepth       prometheus.Gauge
}

// New 建立並註冊所有指標
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_requests_total",
			Help: "Send requests by template and outcome.",
		}, []string{"template", "outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_dispatch_total",
			Help: "Background deliveries by template, provider and outcome.",
		}, []string{"template", "provider", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notify_dispatch_duration_seconds",
			Help:    "Duration of a single delivery attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notify_dispatch_queue_depth",
			Help: "Jobs waiting in the dispatcher queue.",
		}),
	}

	reg.MustRegister(m.requests, m.dispatches, m.dispatchDuration, m.queueDepth)
	return m
}

// RecordRequest 記錄 API 請求結果
func (m *Metrics) RecordRequest(template, outcome string) {
	m.requests.WithLabelValues(template, outcome).Inc()
}

// RecordDispatch 記錄一次寄送嘗試
func (m *Metrics) RecordDispatch(template, provider string, err error, elapsed time.Duration) {
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	m.dispatches.WithLabelValues(template, provider, outcome).Inc()
	m.dispatchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// SetQueueDepth 更新佇列長度
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}
