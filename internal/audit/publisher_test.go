package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personad/pkg/requestcontext"
)

type failingSink struct{ calls int }

func (s *failingSink) Publish(context.Context, Event) error {
	s.calls++
	return errors.New("broker unreachable")
}

func TestEmitStampsTimestampAndRequestID(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	personID := uuid.New()
	require.NoError(t, publisher.Emit(ctx, Event{PersonID: personID, Action: ActionEntryAdded}))

	events, err := store.ListByPerson(ctx, personID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-123", events[0].RequestID)
}

func TestEmitSurvivesSinkFailure(t *testing.T) {
	store := NewInMemoryStore()
	sink := &failingSink{}
	publisher := NewPublisher(store, sink)

	personID := uuid.New()
	err := publisher.Emit(context.Background(), Event{PersonID: personID, Action: ActionProfileDerived})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)

	events, err := store.ListByPerson(context.Background(), personID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestWorkerDrainsInbox(t *testing.T) {
	store := NewInMemoryStore()
	worker := NewWorker(NewPublisher(store), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	personID := uuid.New()
	require.NoError(t, worker.Emit(context.Background(), Event{PersonID: personID, Action: ActionPersonCreated}))

	assert.Eventually(t, func() bool {
		events, err := store.ListByPerson(context.Background(), personID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerStampsFromCallerContext(t *testing.T) {
	store := NewInMemoryStore()
	worker := NewWorker(NewPublisher(store), 4)

	// The consuming goroutine runs on its own context, so request-scoped
	// values must be captured at Emit time.
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-456")

	personID := uuid.New()
	require.NoError(t, worker.Emit(ctx, Event{PersonID: personID, Action: ActionEntryAdded}))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(runCtx) }()

	assert.Eventually(t, func() bool {
		events, err := store.ListByPerson(context.Background(), personID)
		return err == nil && len(events) == 1 &&
			events[0].RequestID == "req-456" && events[0].Timestamp.Equal(now)
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerFullInboxDropsEvent(t *testing.T) {
	worker := NewWorker(NewPublisher(NewInMemoryStore()), 1)
	personID := uuid.New()

	require.NoError(t, worker.Emit(context.Background(), Event{PersonID: personID, Action: ActionEntryAdded}))
	err := worker.Emit(context.Background(), Event{PersonID: personID, Action: ActionEntryAdded})
	assert.Error(t, err, "a full inbox must drop rather than block")
}
