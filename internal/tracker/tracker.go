// Package tracker holds the in-flight state of queries between their start
// event and whichever terminal event fires first.
package tracker

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Entry is the state recorded for one in-flight query.
type Entry struct {
	Started time.Time

	// Span is the query's open trace span. Nil unless tracing is enabled.
	Span trace.Span
}

// Tracker maps in-flight query ids to their start state. Start and Take are
// atomic with respect to each other, so the per-id lifecycle holds even when
// the client delivers events from multiple goroutines.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func New() *Tracker {
	return &Tracker{
		entries: make(map[string]Entry),
	}
}

// Start records the entry for id. A duplicate id overwrites the previous
// entry; the client is trusted not to reuse an id while a query is in flight,
// so the newer start wins if it ever does.
func (t *Tracker) Start(id string, e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = e
}

// Take removes and returns the entry for id. The bool is false when no start
// was recorded for id, which callers treat as a client protocol anomaly
// rather than an error.
func (t *Tracker) Take(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}

	return e, ok
}

// Len reports how many queries are currently in flight. Entries are never
// evicted on a timer, so a steadily growing value points at a client that has
// stopped emitting terminal events.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
