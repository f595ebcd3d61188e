package audit

import "context"

// Sink receives audit events. Implementations must not block scoring paths
// for long; failures are logged and dropped, never surfaced to callers.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// NopSink discards every event. Used when no webhook is configured.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }
