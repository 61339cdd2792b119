package cms

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records one sample per remote query. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the cms collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubfront",
			Subsystem: "cms",
			Name:      "requests_total",
			Help:      "Cosmic queries by object type, operation and outcome.",
		}, []string{"type", "op", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pubfront",
			Subsystem: "cms",
			Name:      "request_duration_seconds",
			Help:      "Latency of Cosmic queries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"type", "op"}),
	}
}

func (m *Metrics) observe(t ObjectType, op string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(t), op, outcome.String()).Inc()
	m.duration.WithLabelValues(string(t), op).Observe(elapsed.Seconds())
}
