package completion

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors for completion service calls. They are registered against a
// caller-supplied registerer; metacast does not serve a metrics endpoint
// itself.
type metrics struct {
	calls    *prometheus.CounterVec
	retries  prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacast",
			Subsystem: "completion",
			Name:      "calls_total",
			Help:      "Completion service calls by prompt key and outcome.",
		}, []string{"prompt_key", "outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metacast",
			Subsystem: "completion",
			Name:      "retries_total",
			Help:      "Completion request retries.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metacast",
			Subsystem: "completion",
			Name:      "call_duration_seconds",
			Help:      "Completion call duration including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// register registers all collectors with the given registerer.
func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.calls, m.retries, m.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
