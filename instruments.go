package dbmetrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamePrefix   = "db_"
	defaultDurationName = "query_duration_seconds"
	defaultErrorName    = "query_errors_total"
)

// errorLabel carries the failing query's message on the error counter.
const errorLabel = "error"

var defaultBuckets = []float64{0.003, 0.03, 0.1, 0.3, 1.5, 10}

// instruments owns the two collectors the exporter writes to. They are built
// and registered once at construction and live for the exporter's lifetime.
type instruments struct {
	duration prometheus.Histogram

	// Exactly one of the two counter shapes is set. errorsByMessage partitions
	// failures by their message; errors is the single unlabeled series used
	// when the message label is disabled.
	errors          prometheus.Counter
	errorsByMessage *prometheus.CounterVec
}

// newInstruments builds both collectors and registers them into reg. On a
// name collision neither collector is left registered: a shared registry is
// returned to the state it was in before the call.
func newInstruments(opts *Options, reg prometheus.Registerer) (*instruments, error) {
	ins := &instruments{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        opts.namePrefix() + opts.durationName(),
			Help:        "Query duration in seconds",
			Buckets:     opts.bucketBoundaries(),
			ConstLabels: opts.ExtraLabels,
		}),
	}

	counterOpts := prometheus.CounterOpts{
		Name:        opts.namePrefix() + opts.errorName(),
		Help:        "Total number of failed queries",
		ConstLabels: opts.ExtraLabels,
	}

	var errCollector prometheus.Collector
	if opts.DisableErrorLabel {
		ins.errors = prometheus.NewCounter(counterOpts)
		errCollector = ins.errors
	} else {
		ins.errorsByMessage = prometheus.NewCounterVec(counterOpts, []string{errorLabel})
		errCollector = ins.errorsByMessage
	}

	if err := reg.Register(ins.duration); err != nil {
		return nil, fmt.Errorf("failed to register duration histogram: %w", err)
	}

	if err := reg.Register(errCollector); err != nil {
		reg.Unregister(ins.duration)
		return nil, fmt.Errorf("failed to register error counter: %w", err)
	}

	return ins, nil
}

func (ins *instruments) observeDuration(seconds float64) {
	ins.duration.Observe(seconds)
}

func (ins *instruments) countError(msg string) {
	if ins.errorsByMessage != nil {
		ins.errorsByMessage.WithLabelValues(msg).Inc()
		return
	}

	ins.errors.Inc()
}
