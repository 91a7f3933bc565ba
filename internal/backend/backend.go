// Package backend stores task results in the layout Celery's Redis result
// backend uses, so producers can poll them with their own client.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"event-worker/internal/model"
)

// DefaultExpires matches Celery's result_expires default.
const DefaultExpires = 24 * time.Hour

const keyPrefix = "celery-task-meta-"

// Backend records task state.
type Backend interface {
	SetResult(ctx context.Context, result *model.Result) error
	// GetResult returns a PENDING result for unknown ids.
	GetResult(ctx context.Context, id string) (*model.Result, error)
}

// Key returns the Redis key holding the result for a task id.
func Key(id string) string {
	return keyPrefix + id
}

func pending(id string) *model.Result {
	return &model.Result{ID: id, Status: model.StatusPending}
}

type RedisBackend struct {
	client  *redis.Client
	expires time.Duration
}

func NewRedisBackend(opts *redis.Options, expires time.Duration) *RedisBackend {
	return &RedisBackend{
		client:  redis.NewClient(opts),
		expires: expires,
	}
}

func (b *RedisBackend) SetResult(ctx context.Context, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrapf(err, "encode result of task %s", result.ID)
	}
	err = b.client.Set(ctx, Key(result.ID), data, b.expires).Err()
	return errors.Wrapf(err, "store result of task %s", result.ID)
}

func (b *RedisBackend) GetResult(ctx context.Context, id string) (*model.Result, error) {
	data, err := b.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pending(id), nil
		}
		return nil, errors.Wrapf(err, "load result of task %s", id)
	}
	result := new(model.Result)
	if err := json.Unmarshal(data, result); err != nil {
		return nil, errors.Wrapf(err, "decode result of task %s", id)
	}
	return result, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// MemoryBackend keeps results in process memory. Results never expire.
type MemoryBackend struct {
	mu      sync.Mutex
	results map[string]model.Result
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{results: make(map[string]model.Result)}
}

func (b *MemoryBackend) SetResult(_ context.Context, result *model.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[result.ID] = *result
	return nil
}

func (b *MemoryBackend) GetResult(_ context.Context, id string) (*model.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	result, ok := b.results[id]
	if !ok {
		return pending(id), nil
	}
	return &result, nil
}
