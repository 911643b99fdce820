package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	AdvisorReplies *prometheus.CounterVec
	AdvisorLatency prometheus.Histogram
	ChatTurns      *prometheus.CounterVec
	ChatRejected   *prometheus.CounterVec
}

// NewMetrics registers the instruments on a private registry, so several
// instances can coexist in one process.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AdvisorReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_replies_total",
			Help:      "Advisor completions by outcome.",
		}, []string{"outcome"}),
		AdvisorLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_latency_seconds",
			Help:      "Wall time of one advisor completion call.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		ChatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Persisted chat turns by speaker.",
		}, []string{"speaker"}),
		ChatRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_rejected_total",
			Help:      "Chat messages rejected before reaching the advisor.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) ObserveAdvisorReply(outcome string, elapsed time.Duration) {
	m.AdvisorReplies.WithLabelValues(outcome).Inc()
	m.AdvisorLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) CountTurn(speaker string) {
	m.ChatTurns.WithLabelValues(speaker).Inc()
}

func (m *Metrics) CountRejected(reason string) {
	m.ChatRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
