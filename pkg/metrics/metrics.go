package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal  *prometheus.CounterVec
	publishTotal  *prometheus.CounterVec
	consumedTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

var (
	once     sync.Once
	recorder *Recorder
)

// New returns the process-wide Prometheus recorder. Collectors register into
// the default registry once, so repeated calls share one instance.
func New() *Recorder {
	once.Do(func() {
		recorder = &Recorder{
			signalsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "alphascout_signals_total",
					Help: "Opportunity signals emitted by scouts",
				},
				[]string{"scout", "signal_type"},
			),
			publishTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "alphascout_publish_total",
					Help: "Signal bus publish attempts",
				},
				[]string{"result"},
			),
			consumedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "alphascout_consumed_total",
					Help: "Broker deliveries processed by the persistence consumer",
				},
				[]string{"result"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "alphascout_errors_total",
					Help: "Errors encountered, by kind",
				},
				[]string{"kind"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "alphascout_operation_seconds",
					Help:    "Operation latency by name",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"name"},
			),
		}
	})
	return recorder
}

func (r *Recorder) RecordSignal(scout, signalType string) {
	r.signalsTotal.WithLabelValues(scout, signalType).Inc()
}

func (r *Recorder) RecordPublish(result string) {
	r.publishTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordConsumed(result string) {
	r.consumedTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(name string, seconds float64) {
	r.latency.WithLabelValues(name).Observe(seconds)
}

// Nop discards all recordings. Used in tests.
type Nop struct{}

func (Nop) RecordSignal(string, string)   {}
func (Nop) RecordPublish(string)          {}
func (Nop) RecordConsumed(string)         {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
