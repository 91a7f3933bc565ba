package producer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"event-worker/internal/backend"
	"event-worker/internal/model"
	"event-worker/internal/queue"
)

// Producer publishes task invocations, the counterpart of celery's Task.delay.
type Producer struct {
	queue   queue.Queue
	backend backend.Backend
}

func New(q queue.Queue, b backend.Backend) *Producer {
	return &Producer{queue: q, backend: b}
}

// Delay enqueues the named task with positional arguments.
func (p *Producer) Delay(ctx context.Context, name string, args ...any) (*AsyncResult, error) {
	return p.DelayKwargs(ctx, name, args, nil)
}

// DelayKwargs enqueues the named task with positional and keyword arguments.
func (p *Producer) DelayKwargs(ctx context.Context, name string, args []any, kwargs map[string]any) (*AsyncResult, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	task := &model.Task{
		ID:     uuid.NewString(),
		Name:   name,
		Args:   args,
		Kwargs: kwargs,
	}
	if err := p.queue.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return &AsyncResult{ID: task.ID, backend: p.backend}, nil
}

// AsyncResult tracks a task published by Delay.
type AsyncResult struct {
	ID      string
	backend backend.Backend
}

// Result returns the current state without waiting.
func (r *AsyncResult) Result(ctx context.Context) (*model.Result, error) {
	return r.backend.GetResult(ctx, r.ID)
}

// Get polls the backend every interval until the task reaches a final state
// or ctx is done.
func (r *AsyncResult) Get(ctx context.Context, interval time.Duration) (*model.Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		result, err := r.backend.GetResult(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if result.Ready() {
			return result, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for task %s", r.ID)
		}
	}
}

// AsyncResult returns a handle for a task published earlier, possibly by
// another process.
func (p *Producer) AsyncResult(id string) *AsyncResult {
	return &AsyncResult{ID: id, backend: p.backend}
}
