package producer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-worker/internal/backend"
	"event-worker/internal/model"
	"event-worker/internal/queue"
	"event-worker/internal/worker"
)

func TestDelayEnqueues(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(4)
	p := New(q, backend.NewMemoryBackend())

	result, err := p.Delay(ctx, "worker.send_event", "example.com/hook", `{"a": 1}`)
	require.NoError(t, err)
	_, err = uuid.Parse(result.ID)
	assert.NoError(t, err)

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.ID, task.ID)
	assert.Equal(t, "worker.send_event", task.Name)
	assert.Equal(t, []any{"example.com/hook", `{"a": 1}`}, task.Args)
	assert.Equal(t, map[string]any{}, task.Kwargs)

	state, err := result.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, state.Status)
}

func TestDelayPropagatesQueueErrors(t *testing.T) {
	q := queue.NewMemoryQueue(0)
	p := New(q, backend.NewMemoryBackend())

	_, err := p.Delay(context.Background(), "worker.send_event")
	assert.ErrorIs(t, err, queue.ErrFull)
}

func TestGetWaitsForWorker(t *testing.T) {
	mr := miniredis.RunT(t)
	log, _ := logtest.NewNullLogger()
	q := queue.NewRedisQueue(&redis.Options{Addr: mr.Addr()}, queue.DefaultKey, log)
	defer q.Close()
	b := backend.NewRedisBackend(&redis.Options{Addr: mr.Addr()}, backend.DefaultExpires)
	defer b.Close()

	d := worker.NewDispatcher(1, q, b, log)
	d.Register("worker.add", func(_ context.Context, args []any, _ map[string]any) (any, error) {
		return args[0].(float64) + args[1].(float64), nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.Run(ctx)

	p := New(q, b)
	async, err := p.DelayKwargs(ctx, "worker.add", []any{2, 3}, nil)
	require.NoError(t, err)

	result, err := async.Get(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.EqualValues(t, 5, result.Result)

	same, err := p.AsyncResult(async.ID).Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Status, same.Status)

	cancel()
	d.Wait()
}

func TestGetHonoursContext(t *testing.T) {
	p := New(queue.NewMemoryQueue(1), backend.NewMemoryBackend())
	async, err := p.Delay(context.Background(), "worker.never")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = async.Get(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
