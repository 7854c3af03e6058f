package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu   sync.Mutex
	msgs []kafka.Message
	fail error
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  []int64
}

func (f *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	n := min(batchSize, len(f.pending))
	batch := f.pending[:n]
	f.pending = f.pending[n:]
	return batch, nil
}

func (f *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ids...)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDispatcherBuildsKeyedMessage(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(discard(), producer, "order.events")

	err := d.Dispatch(context.Background(), Event{
		ID:          1,
		AggregateID: "order-1",
		Type:        "OrderChanged",
		Payload:     []byte(`{"order_id":"order-1"}`),
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	assert.Equal(t, "order.events", msg.Topic)
	assert.Equal(t, []byte("order-1"), msg.Key)

	var types, parents int
	for _, h := range msg.Headers {
		switch h.Key {
		case "event_type":
			types++
			assert.Equal(t, "OrderChanged", string(h.Value))
		case "traceparent":
			parents++
		}
	}
	assert.Equal(t, 1, types)
	assert.Equal(t, 1, parents)
}

func TestRelayDrainsPendingAndMarksSent(t *testing.T) {
	producer := &fakeProducer{}
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "a", Type: "OrderChanged"},
		{ID: 2, AggregateID: "b", Type: "OrderChanged"},
	}}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "t"), "test-relay")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = relay.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.ElementsMatch(t, []int64{1, 2}, store.sent)
	assert.Empty(t, store.failed)
}

func TestRelayMarksFailedOnDispatchError(t *testing.T) {
	producer := &fakeProducer{fail: errors.New("broker down")}
	store := &fakeStore{pending: []Event{{ID: 7, AggregateID: "a", Type: "OrderChanged"}}}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "t"), "test-relay")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.failed) == 1
	}, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.sent)
}
