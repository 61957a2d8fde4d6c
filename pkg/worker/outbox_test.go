package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/portal-api/internal/model"
)

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failed    map[uuid.UUID]string
}

func newFakeOutboxRepo(events ...*model.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{pending: events, failed: make(map[uuid.UUID]string)}
}

func (f *fakeOutboxRepo) CreateTx(context.Context, *sqlx.Tx, *model.OutboxEvent) error { return nil }

func (f *fakeOutboxRepo) GetPendingWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = errMsg
	return nil
}

type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]interface{}
	failures  int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]interface{})}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	b.published[channel] = append(b.published[channel], message)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func pendingEvent(channel string) *model.OutboxEvent {
	payload, _ := json.Marshal(map[string]string{"hello": "world"})
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventAppointmentCreated,
		Channel:   channel,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
}

func newTestProcessor(repo *fakeOutboxRepo, broker *fakeBroker, attempts int) *OutboxProcessor {
	logger := zerolog.Nop()
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, &logger, nil)
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	event := pendingEvent("appointments.doctor.abc")
	repo := newFakeOutboxRepo(event)
	broker := newFakeBroker()
	p := newTestProcessor(repo, broker, 3)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.published["appointments.doctor.abc"], 1)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.processed)
	assert.Empty(t, repo.failed)
}

func TestProcessEventRetriesTransientFailure(t *testing.T) {
	event := pendingEvent("appointments.doctor.abc")
	repo := newFakeOutboxRepo(event)
	broker := newFakeBroker()
	broker.failures = 2 // succeeds on third attempt
	p := newTestProcessor(repo, broker, 3)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.published["appointments.doctor.abc"], 1)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.processed)
}

func TestProcessEventMarksFailedAfterExhaustedRetries(t *testing.T) {
	event := pendingEvent("appointments.doctor.abc")
	repo := newFakeOutboxRepo(event)
	broker := newFakeBroker()
	broker.failures = 10
	p := newTestProcessor(repo, broker, 2)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	assert.Contains(t, repo.failed[event.ID], "broker unavailable")
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := newFakeOutboxRepo()
	p := newTestProcessor(repo, newFakeBroker(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}
