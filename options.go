package dbmetrics

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Options configures an Exporter. The zero value is usable: metrics land in a
// private registry under the default names with the default buckets.
type Options struct {
	// Registry receives the two collectors. When nil the exporter creates a
	// private registry and exposes it through Exporter.Registry so the caller
	// can render it.
	Registry prometheus.Registerer

	// NamePrefix is prepended verbatim to both metric names. Nil selects the
	// default "db_"; point at an empty string to disable prefixing.
	NamePrefix *string

	// DurationMetricName overrides the histogram's base name, by default
	// "query_duration_seconds".
	DurationMetricName string

	// ErrorMetricName overrides the counter's base name, by default
	// "query_errors_total".
	ErrorMetricName string

	// Buckets are the histogram bucket boundaries in seconds. They must be
	// positive and strictly ascending; the client library appends the +Inf
	// bucket itself. Nil selects {0.003, 0.03, 0.1, 0.3, 1.5, 10}.
	Buckets []float64

	// ExtraLabels are fixed label dimensions stamped onto every series both
	// instruments emit, e.g. the name of the instrumented connection when
	// several exporters share one registry.
	ExtraLabels prometheus.Labels

	// DisableErrorLabel collapses the error counter into a single series
	// instead of partitioning it by an "error" label carrying each failure's
	// message.
	DisableErrorLabel bool

	// Logger defaults to slog.Default with a "group" attribute.
	Logger *slog.Logger

	// Tracer, when set, opens a span per observed query in addition to the
	// metrics. Nil disables tracing.
	Tracer trace.Tracer
}

func (o *Options) validate() error {
	prev := 0.0
	for i, b := range o.Buckets {
		if b <= prev {
			return fmt.Errorf("bucket boundaries must be positive and strictly ascending, got %v at index %d", b, i)
		}
		prev = b
	}

	return nil
}

func (o *Options) namePrefix() string {
	if o.NamePrefix == nil {
		return defaultNamePrefix
	}
	return *o.NamePrefix
}

func (o *Options) durationName() string {
	if o.DurationMetricName == "" {
		return defaultDurationName
	}
	return o.DurationMetricName
}

func (o *Options) errorName() string {
	if o.ErrorMetricName == "" {
		return defaultErrorName
	}
	return o.ErrorMetricName
}

func (o *Options) bucketBoundaries() []float64 {
	if o.Buckets == nil {
		return defaultBuckets
	}
	return o.Buckets
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With(slog.String("group", "dbmetrics"))
}
