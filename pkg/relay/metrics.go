package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess is the metrics label for requests that returned JSON data.
// Failures are labelled with their ErrorType constant.
const OutcomeSuccess = "success"

// Metrics records relay outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates relay metrics and registers them with reg when reg is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xtream",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Total number of relayed panel requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xtream",
			Subsystem: "relay",
			Name:      "request_duration_seconds",
			Help:      "Duration of relayed panel requests by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
