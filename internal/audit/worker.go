package audit

import (
	"context"

	"personad/pkg/derrors"
)

// Worker takes audit writes off the request path. Emit stamps the event from
// the caller's context and enqueues it; Run drains the inbox into the
// publisher on its own goroutine.
type Worker struct {
	publisher *Publisher
	inbox     chan Event
}

func NewWorker(publisher *Publisher, size int) *Worker {
	return &Worker{publisher: publisher, inbox: make(chan Event, size)}
}

// Emit enqueues the event without blocking. Request-scoped values are
// captured here because the consuming goroutine has its own context. A full
// inbox drops the event: the audit trail must never stall a request.
func (w *Worker) Emit(ctx context.Context, event Event) error {
	event = stamp(ctx, event)
	select {
	case w.inbox <- event:
		return nil
	default:
		return derrors.New(derrors.CodeUnavailable, "audit inbox full, event dropped")
	}
}

// Run consumes the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				return err
			}
		}
	}
}
