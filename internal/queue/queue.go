package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"event-worker/internal/model"
)

// DefaultKey is the list Celery producers publish to unless routed elsewhere.
const DefaultKey = "celery"

// ErrFull is returned by MemoryQueue.Enqueue when the buffer has no room left.
var ErrFull = errors.New("queue is full")

// Queue is the broker the dispatcher consumes from and producers publish to.
type Queue interface {
	Enqueue(ctx context.Context, task *model.Task) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*model.Task, error)
}

// MemoryQueue is a channel-based queue for single-process use and tests.
type MemoryQueue struct {
	ch chan *model.Task
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		ch: make(chan *model.Task, size),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *model.Task) error {
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*model.Task, error) {
	select {
	case task := <-q.ch:
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered tasks.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// RedisQueue stores kombu envelopes in a Redis list, the layout Celery uses
// with its Redis transport.
type RedisQueue struct {
	client *redis.Client
	key    string
	log    logrus.FieldLogger

	// PollTimeout bounds each BRPOP so that cancellation is noticed.
	PollTimeout time.Duration
}

func NewRedisQueue(opts *redis.Options, key string, log logrus.FieldLogger) *RedisQueue {
	rdb := redis.NewClient(opts)

	// A failed ping is not fatal; BRPOP keeps retrying until Redis comes up.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warnf("failed to connect to broker at %s", opts.Addr)
	}

	return &RedisQueue{
		client:      rdb,
		key:         key,
		log:         log,
		PollTimeout: time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *model.Task) error {
	data, err := EncodeMessage(task, q.key)
	if err != nil {
		return err
	}
	// Producers push to the head; consumers pop from the tail.
	return errors.Wrapf(q.client.LPush(ctx, q.key, data).Err(), "enqueue task %s", task.ID)
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*model.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := q.client.BRPop(ctx, q.PollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q.log.WithError(err).Warn("broker dequeue failed, retrying in 1s")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		// result is [key, value]
		if len(result) < 2 {
			continue
		}

		task, err := DecodeMessage([]byte(result[1]))
		if err != nil {
			q.log.WithError(err).WithField("raw", result[1]).Error("dropping undecodable message")
			continue
		}
		return task, nil
	}
}

// Len returns the number of messages waiting in the list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
