package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-worker/internal/model"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)

	require.NoError(t, q.Enqueue(ctx, &model.Task{ID: "1"}))
	assert.ErrorIs(t, q.Enqueue(ctx, &model.Task{ID: "2"}), ErrFull)
	assert.Equal(t, 1, q.Len())

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Dequeue(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func newRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis, *logtest.Hook) {
	t.Helper()
	mr := miniredis.RunT(t)
	log, hook := logtest.NewNullLogger()
	q := NewRedisQueue(&redis.Options{Addr: mr.Addr()}, DefaultKey, log)
	t.Cleanup(func() { q.Close() })
	return q, mr, hook
}

func TestRedisQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q, mr, _ := newRedisQueue(t)

	for _, id := range []string{"first", "second"} {
		require.NoError(t, q.Enqueue(ctx, &model.Task{ID: id, Name: "worker.send_event", Args: []any{"a", "{}"}}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Producers push to the head of the list.
	list, err := mr.List(DefaultKey)
	require.NoError(t, err)
	head, err := DecodeMessage([]byte(list[0]))
	require.NoError(t, err)
	assert.Equal(t, "second", head.ID)

	for _, want := range []string{"first", "second"} {
		task, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, task.ID)
		assert.Equal(t, []any{"a", "{}"}, task.Args)
	}
}

func TestRedisQueueSkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	q, mr, hook := newRedisQueue(t)

	_, err := mr.Lpush(DefaultKey, "not a kombu message")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, &model.Task{ID: "good", Name: "t"}))

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", task.ID)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "dropping undecodable message", hook.LastEntry().Message)
}

func TestRedisQueueDequeueStopsOnCancel(t *testing.T) {
	q, _, _ := newRedisQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("Dequeue did not return after the context expired")
	}
}
