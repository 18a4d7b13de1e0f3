package audit

import (
	"context"

	"github.com/google/uuid"

	"personad/pkg/requestcontext"
)

// Emitter records domain audit events. Publisher writes synchronously;
// Worker defers the write to a background goroutine.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Sink receives a copy of every emitted event, on top of the store append.
// Used for external fan-out (message broker, log shipper).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
	sinks []Sink
}

func NewPublisher(store Store, sinks ...Sink) *Publisher {
	return &Publisher{store: store, sinks: sinks}
}

// Emit stamps and persists an event. Sink failures do not fail the emit:
// the store is the system of record and external fan-out is best effort.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	base = stamp(ctx, base)
	if err := p.store.Append(ctx, base); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		_ = sink.Publish(ctx, base)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, personID uuid.UUID) ([]Event, error) {
	return p.store.ListByPerson(ctx, personID)
}

// stamp fills in request-scoped fields left empty by the caller.
func stamp(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return event
}
