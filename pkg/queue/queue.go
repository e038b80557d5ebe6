package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/internal/handler"
	"github.com/jdziat/simple-durable-batches/pkg/schedule"
	"github.com/jdziat/simple-durable-batches/pkg/security"
)

// Queue manages handler registration, timer job scheduling, hooks and events.
type Queue struct {
	storage  core.Storage
	registry *handler.Registry
	mu       sync.RWMutex

	// Hooks
	onExecuted []func(context.Context, *core.TimerJob)
	onFailed   []func(context.Context, *core.TimerJob, error)
	onRetry    []func(context.Context, *core.TimerJob, int, error)

	// Event stream
	eventSubs []chan core.Event
}

// New creates a new Queue with the given storage backend.
func New(s core.Storage) *Queue {
	return &Queue{
		storage:  s,
		registry: handler.NewRegistry(),
	}
}

// Register registers a handler under its type tag.
// Type tags must start with a letter, max 255 chars.
func (q *Queue) Register(h core.JobHandler) error {
	return q.registry.Register(h)
}

// MustRegister is like Register but panics on error.
func (q *Queue) MustRegister(h core.JobHandler) {
	if err := q.Register(h); err != nil {
		panic(err)
	}
}

// HasHandler checks if a handler is registered.
func (q *Queue) HasHandler(handlerType string) bool {
	_, ok := q.registry.Lookup(handlerType)
	return ok
}

// Handler returns the handler registered for a type tag.
func (q *Queue) Handler(handlerType string) (core.JobHandler, bool) {
	return q.registry.Lookup(handlerType)
}

// HandlerTypes returns the registered type tags in sorted order.
func (q *Queue) HandlerTypes() []string {
	return q.registry.Types()
}

// Schedule creates a timer job that runs the handler for handlerType with
// the given configuration.
//
// The first run is due at DueAt, else after DueIn, else one repeat interval
// from now for recurring jobs, else immediately.
func (q *Queue) Schedule(ctx context.Context, handlerType, configuration string, opts ...Option) (*core.TimerJob, error) {
	return q.ScheduleTx(ctx, q.storage, handlerType, configuration, opts...)
}

// ScheduleTx is like Schedule but creates the job through tx, so it commits
// or rolls back together with the caller's other writes.
func (q *Queue) ScheduleTx(ctx context.Context, tx core.Storage, handlerType, configuration string, opts ...Option) (*core.TimerJob, error) {
	if !q.HasHandler(handlerType) {
		return nil, fmt.Errorf("%w: %q", core.ErrNoHandler, handlerType)
	}
	if err := security.ValidateConfiguration(configuration); err != nil {
		return nil, err
	}

	options := NewOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}
	if err := schedule.Validate(options.Repeat); err != nil {
		return nil, fmt.Errorf("batches: invalid repeat %s: %w", options.Repeat, err)
	}

	now := time.Now()
	due := now
	switch {
	case options.DueAt != nil:
		due = *options.DueAt
	case options.Delay > 0:
		due = now.Add(options.Delay)
	case options.Repeat.IsRecurring():
		next, _, err := schedule.NextDue(options.Repeat, now)
		if err != nil {
			return nil, err
		}
		due = next
	}

	job := &core.TimerJob{
		ID:            uuid.New().String(),
		HandlerType:   handlerType,
		HandlerConfig: configuration,
		Repeat:        options.Repeat,
		Retries:       options.Retries,
		MaxRetries:    options.Retries,
		DueDate:       &due,
		Category:      options.Category,
		TenantID:      options.TenantID,
		ScopeID:       options.ScopeID,
		ScopeType:     options.ScopeType,
		CorrelationID: options.CorrelationID,
	}
	if err := tx.CreateTimerJob(ctx, job); err != nil {
		return nil, fmt.Errorf("batches: failed to schedule %s: %w", handlerType, err)
	}
	return job, nil
}

// Storage returns the underlying storage.
func (q *Queue) Storage() core.Storage {
	return q.storage
}

// OnJobExecuted registers a callback for when a run commits.
func (q *Queue) OnJobExecuted(fn func(context.Context, *core.TimerJob)) {
	q.mu.Lock()
	q.onExecuted = append(q.onExecuted, fn)
	q.mu.Unlock()
}

// OnJobFailed registers a callback for when a job is dead-lettered.
func (q *Queue) OnJobFailed(fn func(context.Context, *core.TimerJob, error)) {
	q.mu.Lock()
	q.onFailed = append(q.onFailed, fn)
	q.mu.Unlock()
}

// OnJobRetry registers a callback for when a failed run will be retried.
// The int argument is the number of retries left.
func (q *Queue) OnJobRetry(fn func(context.Context, *core.TimerJob, int, error)) {
	q.mu.Lock()
	q.onRetry = append(q.onRetry, fn)
	q.mu.Unlock()
}

// Events returns a channel for receiving queue events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (q *Queue) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	q.mu.Lock()
	q.eventSubs = append(q.eventSubs, ch)
	q.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed. After Unsubscribe returns, no further events
// will be sent to the channel.
func (q *Queue) Unsubscribe(ch <-chan core.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, sub := range q.eventSubs {
		if sub == ch {
			q.eventSubs = append(q.eventSubs[:i], q.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit emits an event to all subscribers.
func (q *Queue) Emit(e core.Event) {
	q.mu.RLock()
	subs := make([]chan core.Event, len(q.eventSubs))
	copy(subs, q.eventSubs)
	q.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full so slow consumers never block a worker.
		}
	}
}

// CallExecutedHooks calls all registered executed hooks.
func (q *Queue) CallExecutedHooks(ctx context.Context, job *core.TimerJob) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.TimerJob), len(q.onExecuted))
	copy(hooks, q.onExecuted)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job)
	}
}

// CallFailedHooks calls all registered failed hooks.
func (q *Queue) CallFailedHooks(ctx context.Context, job *core.TimerJob, err error) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.TimerJob, error), len(q.onFailed))
	copy(hooks, q.onFailed)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job, err)
	}
}

// CallRetryHooks calls all registered retry hooks.
func (q *Queue) CallRetryHooks(ctx context.Context, job *core.TimerJob, retries int, err error) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.TimerJob, int, error), len(q.onRetry))
	copy(hooks, q.onRetry)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job, retries, err)
	}
}

// WorkerFactory is set by the root package to create workers.
// This avoids import cycles between queue and worker packages.
var WorkerFactory func(q *Queue, opts ...any) core.Starter

// NewWorker creates a new worker for this queue.
// Options should be worker.WorkerOption values.
func (q *Queue) NewWorker(opts ...any) core.Starter {
	if WorkerFactory == nil {
		panic("batches: WorkerFactory not initialized - import github.com/jdziat/simple-durable-batches to initialize")
	}
	return WorkerFactory(q, opts...)
}
