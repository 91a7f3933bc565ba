package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"event-worker/internal/backend"
	"event-worker/internal/model"
	"event-worker/internal/queue"
)

// TaskFunc is the body of a registered task. The return value is stored as
// the task result.
type TaskFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Dispatcher pulls tasks off the queue and runs the registered TaskFunc for
// each of them on a fixed pool of goroutines. Failed tasks are recorded and
// never retried.
//
// An error may name the exception type reported in the result backend by
// implementing ExcType() string.
type Dispatcher struct {
	WorkerPoolSize int
	Queue          queue.Queue
	Backend        backend.Backend
	Log            logrus.FieldLogger

	mu    sync.RWMutex
	tasks map[string]TaskFunc
	wg    sync.WaitGroup
	now   func() time.Time
}

func NewDispatcher(poolSize int, q queue.Queue, b backend.Backend, log logrus.FieldLogger) *Dispatcher {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Dispatcher{
		WorkerPoolSize: poolSize,
		Queue:          q,
		Backend:        b,
		Log:            log,
		tasks:          make(map[string]TaskFunc),
		now:            time.Now,
	}
}

// Register binds a task name to its body, replacing any earlier binding.
func (d *Dispatcher) Register(name string, fn TaskFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[name] = fn
}

func (d *Dispatcher) lookup(name string) (TaskFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.tasks[name]
	return fn, ok
}

// Run starts the worker goroutines. They exit once ctx is done; use Wait to
// block until the in-flight tasks have finished.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(d.WorkerPoolSize)
	for i := 0; i < d.WorkerPoolSize; i++ {
		go d.worker(ctx, i)
	}
	d.Log.Infof("Dispatcher started with %d workers", d.WorkerPoolSize)
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		task, err := d.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.Log.WithError(err).WithField("worker", id).Error("dequeue failed")
			continue
		}
		d.process(ctx, id, task)
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, task *model.Task) {
	log := d.Log.WithFields(logrus.Fields{
		"worker":  workerID,
		"task_id": task.ID,
		"task":    task.Name,
	})

	if task.Expired(d.now()) {
		log.Warnf("Task expired at %s, revoking", task.Expires.Time)
		d.record(ctx, log, &model.Result{ID: task.ID, Status: model.StatusRevoked})
		return
	}

	fn, ok := d.lookup(task.Name)
	if !ok {
		log.Error("Received unregistered task")
		d.record(ctx, log, failure(task.ID, &notRegisteredError{name: task.Name}))
		return
	}

	log.Infof("Processing task (Retry: %d)", task.Retries)
	d.record(ctx, log, &model.Result{ID: task.ID, Status: model.StatusStarted})

	start := d.now()
	value, err := execute(ctx, fn, task)
	log = log.WithField("elapsed", d.now().Sub(start).String())
	if err != nil {
		log.WithError(err).Error("Task failed")
		d.record(ctx, log, failure(task.ID, err))
		return
	}

	log.Info("Task succeeded")
	d.record(ctx, log, &model.Result{ID: task.ID, Status: model.StatusSuccess, Result: value})
}

// record stores a task state. Results are written even while shutting down so
// that a task which ran to completion is not left STARTED.
func (d *Dispatcher) record(ctx context.Context, log logrus.FieldLogger, result *model.Result) {
	if result.Children == nil {
		result.Children = []any{}
	}
	if err := d.Backend.SetResult(context.WithoutCancel(ctx), result); err != nil {
		log.WithError(err).Error("failed to store task result")
	}
}

func execute(ctx context.Context, fn TaskFunc, task *model.Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, task.Args, task.Kwargs)
}

func failure(id string, err error) *model.Result {
	return &model.Result{
		ID:     id,
		Status: model.StatusFailure,
		Result: model.Failure{
			Type:    excType(err),
			Message: err.Error(),
		},
		Traceback: fmt.Sprintf("%+v", err),
	}
}

func excType(err error) string {
	var named interface{ ExcType() string }
	if errors.As(err, &named) {
		return named.ExcType()
	}
	return "Exception"
}

type notRegisteredError struct {
	name string
}

func (e *notRegisteredError) Error() string {
	return fmt.Sprintf("task %q is not registered", e.name)
}

func (e *notRegisteredError) ExcType() string { return "NotRegistered" }
