package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports payment measurements through a prometheus
// registerer.
type PrometheusRecorder struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the payment metric vectors with the
// default registerer.
func NewPrometheusRecorder() Recorder {
	return NewPrometheusRecorderWith(prometheus.DefaultRegisterer)
}

// NewPrometheusRecorderWith registers the payment metric vectors with reg.
func NewPrometheusRecorderWith(reg prometheus.Registerer) Recorder {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "x402a2a",
			Name:      "payment_events_total",
			Help:      "Payment protocol events by outcome and network",
		},
		[]string{"event", "network"},
	)

	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "x402a2a",
			Name:      "operation_latency_seconds",
			Help:      "Latency of verify, settle, and delegate operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "network"},
	)

	reg.MustRegister(events, latency)

	return &PrometheusRecorder{
		events:  events,
		latency: latency,
	}
}

func (p *PrometheusRecorder) IncEvent(event, network string) {
	p.events.WithLabelValues(event, network).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(operation, network string, d time.Duration) {
	p.latency.WithLabelValues(operation, network).Observe(d.Seconds())
}
