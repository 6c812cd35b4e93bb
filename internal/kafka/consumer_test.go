package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader serves msgs once, then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func runConsumer(t *testing.T, r *fakeReader, workers int, h Handler) (stop func()) {
	t.Helper()
	c := newConsumer(r, workers, zap.NewNop())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not stop")
		}
	}
}

func TestConsumerRetriesFailedMessageBeforeLaterOffsets(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 1},
		{Partition: 0, Offset: 2},
		{Partition: 0, Offset: 3},
	}}
	var mu sync.Mutex
	attempts := map[int64]int{}
	var handled []int64

	stop := runConsumer(t, r, 4, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 1 && attempts[m.Offset] < 3 {
			return errors.New("redis down")
		}
		handled = append(handled, m.Offset)
		return nil
	})
	require.Eventually(t, func() bool { return r.committedCount() == 3 }, 5*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []int64{1, 2, 3}, r.committedOffsets(0))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts[1])
	assert.Equal(t, []int64{1, 2, 3}, handled)
	assert.True(t, r.closed)
}

func TestConsumerDoesNotCommitPastStuckMessage(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 1},
		{Partition: 0, Offset: 2},
		{Partition: 1, Offset: 7},
	}}

	stop := runConsumer(t, r, 2, func(_ context.Context, m kafka.Message) error {
		if m.Partition == 0 && m.Offset == 1 {
			return errors.New("still failing")
		}
		return nil
	})
	require.Eventually(t, func() bool { return len(r.committedOffsets(1)) == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	stop()

	assert.Empty(t, r.committedOffsets(0))
	assert.Equal(t, []int64{7}, r.committedOffsets(1))
}

func TestConsumerStopsWhileIdle(t *testing.T) {
	r := &fakeReader{}
	stop := runConsumer(t, r, 3, func(context.Context, kafka.Message) error { return nil })
	stop()
	assert.True(t, r.closed)
}
