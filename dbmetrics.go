// Package dbmetrics exposes Prometheus latency and error metrics for a
// database client that reports query lifecycle events.
//
// The client emits a start event when it sends a query and exactly one
// terminal event (success or error) when the query finishes, all keyed by an
// opaque correlation id. The exporter matches the pairs up, observes the
// elapsed time of each successful query into a histogram, and counts each
// failure, optionally partitioned by error message. It never issues queries
// of its own and never blocks the client's dispatch.
package dbmetrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bluesky-social/dbmetrics/internal/tracker"
)

// Exporter bridges a client's query lifecycle events into a duration
// histogram and an error counter. Create one per instrumented client with
// New; when several exporters share a registry, give each distinct names or
// ExtraLabels.
type Exporter struct {
	log    *slog.Logger
	tracer trace.Tracer

	inflight *tracker.Tracker
	ins      *instruments

	// Set only when the exporter created its own registry.
	registry *prometheus.Registry

	detached   atomic.Bool
	detachOnce sync.Once
	cancels    []func()
}

// New registers the exporter's instruments and subscribes it to source's
// three event channels. It fails if source is nil, if the bucket boundaries
// are malformed, or if either metric name is already taken in the target
// registry; on failure nothing is left registered or subscribed.
func New(source EventSource, opts *Options) (*Exporter, error) {
	if source == nil {
		return nil, errors.New("event source is required")
	}

	if opts == nil {
		opts = &Options{}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	e := &Exporter{
		log:      opts.logger(),
		tracer:   opts.Tracer,
		inflight: tracker.New(),
	}

	reg := opts.Registry
	if reg == nil {
		e.registry = prometheus.NewRegistry()
		reg = e.registry
	}

	ins, err := newInstruments(opts, reg)
	if err != nil {
		return nil, err
	}
	e.ins = ins

	e.cancels = []func(){
		source.OnQueryStart(e.handleStart),
		source.OnQuerySuccess(e.handleSuccess),
		source.OnQueryError(e.handleError),
	}

	return e, nil
}

// Registry returns the registry the exporter created for itself, so the
// caller can gather and render it. It is nil when the caller supplied a
// registry through Options.Registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// InFlight reports how many queries have started but not yet finished.
func (e *Exporter) InFlight() int {
	return e.inflight.Len()
}

// Detach cancels all three subscriptions. It is idempotent, and once it
// returns no subsequently delivered event mutates the metrics; late events
// from a misbehaving source are dropped, not errors. The instruments stay
// registered with their accumulated values.
func (e *Exporter) Detach() {
	e.detachOnce.Do(func() {
		e.detached.Store(true)
		for _, cancel := range e.cancels {
			cancel()
		}
	})
}

func (e *Exporter) handleStart(ev StartEvent) {
	defer e.recoverPanic("start")

	if e.detached.Load() || ev.QueryID == "" {
		return
	}

	entry := tracker.Entry{Started: time.Now()}
	if e.tracer != nil {
		_, entry.Span = e.tracer.Start(context.Background(), "query",
			trace.WithAttributes(attribute.String("query_id", ev.QueryID)),
		)
	}

	e.inflight.Start(ev.QueryID, entry)
}

func (e *Exporter) handleSuccess(ev SuccessEvent) {
	defer e.recoverPanic("success")

	if e.detached.Load() {
		return
	}

	entry, ok := e.inflight.Take(ev.QueryID)
	if !ok {
		// A terminal event with no recorded start. The client broke protocol;
		// skip the observation rather than record a bogus duration.
		return
	}

	e.ins.observeDuration(time.Since(entry.Started).Seconds())

	if entry.Span != nil {
		entry.Span.End()
	}
}

func (e *Exporter) handleError(ev ErrorEvent) {
	defer e.recoverPanic("error")

	if e.detached.Load() {
		return
	}

	entry, ok := e.inflight.Take(ev.QueryID)

	// The failure is counted even without a matching start entry: the error
	// is real even when the timing bookkeeping is not.
	msg := ""
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	e.ins.countError(msg)

	if ok && entry.Span != nil {
		entry.Span.RecordError(ev.Err)
		entry.Span.SetStatus(codes.Error, msg)
		entry.Span.End()
	}
}

// A panic inside a handler must never take down the client's dispatch, so
// each handler swallows it and drops the event.
func (e *Exporter) recoverPanic(channel string) {
	if r := recover(); r != nil {
		e.log.Warn("query event handler panicked", "channel", channel, "panic", r)
	}
}
