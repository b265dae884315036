package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gateway calls. A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CSRFRetries     *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskdesk",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "API calls by method and outcome kind (ok for success).",
			},
			[]string{"method", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskdesk",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "API call duration including a CSRF retry.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		CSRFRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskdesk",
				Subsystem: "gateway",
				Name:      "csrf_retries_total",
				Help:      "Requests retried after a CSRF rejection, by result.",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) csrfRetry(result string) {
	if m == nil {
		return
	}
	m.CSRFRetries.WithLabelValues(result).Inc()
}
