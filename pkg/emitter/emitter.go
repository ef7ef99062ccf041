// Package emitter provides a small synchronous fan-out for query lifecycle
// events. Database clients that have no event machinery of their own can
// embed an Emitter to satisfy dbmetrics.EventSource.
package emitter

import (
	"slices"
	"sync"

	"github.com/bluesky-social/dbmetrics"
)

type handler[T any] struct {
	id int
	fn func(T)
}

// Emitter dispatches each emitted event synchronously, in subscription
// order, to the handlers registered on that channel. Emitting and
// subscribing are safe for concurrent use, but a handler must not cancel a
// subscription from inside its own callback.
type Emitter struct {
	mu     sync.RWMutex
	nextID int

	start   []handler[dbmetrics.StartEvent]
	success []handler[dbmetrics.SuccessEvent]
	errs    []handler[dbmetrics.ErrorEvent]
}

func New() *Emitter {
	return &Emitter{}
}

// OnQueryStart registers fn and returns an idempotent cancel func.
func (e *Emitter) OnQueryStart(fn func(dbmetrics.StartEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.allocID()
	e.start = append(e.start, handler[dbmetrics.StartEvent]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.start = removeHandler(e.start, id)
	}
}

// OnQuerySuccess registers fn and returns an idempotent cancel func.
func (e *Emitter) OnQuerySuccess(fn func(dbmetrics.SuccessEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.allocID()
	e.success = append(e.success, handler[dbmetrics.SuccessEvent]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.success = removeHandler(e.success, id)
	}
}

// OnQueryError registers fn and returns an idempotent cancel func.
func (e *Emitter) OnQueryError(fn func(dbmetrics.ErrorEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.allocID()
	e.errs = append(e.errs, handler[dbmetrics.ErrorEvent]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.errs = removeHandler(e.errs, id)
	}
}

// EmitStart delivers ev to every start handler before returning.
func (e *Emitter) EmitStart(ev dbmetrics.StartEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, h := range e.start {
		h.fn(ev)
	}
}

// EmitSuccess delivers ev to every success handler before returning.
func (e *Emitter) EmitSuccess(ev dbmetrics.SuccessEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, h := range e.success {
		h.fn(ev)
	}
}

// EmitError delivers ev to every error handler before returning.
func (e *Emitter) EmitError(ev dbmetrics.ErrorEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, h := range e.errs {
		h.fn(ev)
	}
}

// allocID must be called with the write lock held.
func (e *Emitter) allocID() int {
	id := e.nextID
	e.nextID++
	return id
}

func removeHandler[T any](hs []handler[T], id int) []handler[T] {
	return slices.DeleteFunc(hs, func(h handler[T]) bool {
		return h.id == id
	})
}
