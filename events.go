package dbmetrics

// StartEvent is emitted by the instrumented client when it sends a query.
type StartEvent struct {
	// QueryID uniquely identifies the in-flight query. The client assigns it;
	// the exporter never generates ids of its own.
	QueryID string
}

// SuccessEvent is emitted when a query completes successfully. The response
// itself is not carried here; the exporter only needs the id.
type SuccessEvent struct {
	QueryID string
}

// ErrorEvent is emitted when a query fails.
type ErrorEvent struct {
	QueryID string
	Err     error
}

// EventSource is the subscription surface of the database client being
// instrumented. Each registration returns a cancel func that removes the
// handler again; cancel funcs are idempotent and may be called in any order.
//
// The client must deliver the events of a given query in lifecycle order and
// must emit exactly one terminal event (success or error) per start.
type EventSource interface {
	OnQueryStart(func(StartEvent)) (cancel func())
	OnQuerySuccess(func(SuccessEvent)) (cancel func())
	OnQueryError(func(ErrorEvent)) (cancel func())
}
