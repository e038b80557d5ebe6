package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	intctx "github.com/jdziat/simple-durable-batches/pkg/internal/context"
	"github.com/jdziat/simple-durable-batches/pkg/internal/handler"
	"github.com/jdziat/simple-durable-batches/pkg/queue"
	"github.com/jdziat/simple-durable-batches/pkg/schedule"
)

// Worker runs due timer jobs.
//
// Each run executes in one storage transaction together with the job's
// reschedule or delete, so a crash mid-run leaves no partial state and the
// job is simply picked up again once its lock expires.
type Worker struct {
	queue  *queue.Queue
	config WorkerConfig
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewWorker creates a new worker for the given queue.
func NewWorker(q *queue.Queue, opts ...WorkerOption) *Worker {
	config := WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		Concurrency:  10,
		LockTimeout:  5 * time.Minute,
		RetryWait:    10 * time.Second,
		WorkerID:     uuid.New().String(),
	}

	for _, opt := range opts {
		opt.ApplyWorker(&config)
	}

	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.StorageRetry == nil {
		defaultCfg := DefaultRetryConfig()
		config.StorageRetry = &defaultCfg
	}
	if config.AcquireRetry == nil {
		// Use longer backoff for acquisition to avoid hammering the DB during outages
		acquireCfg := RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			JitterFraction:    0.2,
		}
		config.AcquireRetry = &acquireCfg
	}

	return &Worker{
		queue:  q,
		config: config,
		logger: config.Logger.With(zap.String("worker_id", config.WorkerID)),
	}
}

// Config returns the effective configuration.
func (w *Worker) Config() WorkerConfig {
	return w.config
}

// Start begins processing jobs. Blocks until context is cancelled.
// Jobs already running when ctx is cancelled are allowed to finish.
func (w *Worker) Start(ctx context.Context) error {
	pool, err := ants.NewPool(w.config.Concurrency,
		ants.WithPanicHandler(func(p any) {
			w.logger.Error("timer job task panicked", zap.Any("panic", p), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("batches: create worker pool: %w", err)
	}
	defer pool.Release()

	runCtx := context.WithoutCancel(ctx)

	w.wg.Add(1)
	go w.runReaper(ctx)

	w.logger.Info("worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("concurrency", w.config.Concurrency),
		zap.Strings("handlers", w.queue.HandlerTypes()),
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			limit := min(w.config.BatchSize, pool.Free())
			if limit <= 0 {
				continue
			}
			jobs, err := w.acquireWithRetry(ctx, limit)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					w.logger.Error("failed to acquire due timer jobs after retries", zap.Error(err))
				}
				continue
			}
			for _, job := range jobs {
				w.wg.Add(1)
				if err := pool.Submit(func() {
					defer w.wg.Done()
					w.processJob(runCtx, job)
				}); err != nil {
					w.wg.Done()
					// The lease expires and the reaper hands the job back.
					w.logger.Error("failed to submit timer job", zap.String("job_id", job.ID), zap.Error(err))
				}
			}
		}
	}
}

// ProcessDue acquires due jobs and runs them on the calling goroutine.
// It returns how many jobs were run.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := w.acquireWithRetry(ctx, w.config.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		w.processJob(ctx, job)
	}
	return len(jobs), nil
}

// acquireWithRetry locks due jobs with exponential backoff on failure.
func (w *Worker) acquireWithRetry(ctx context.Context, limit int) ([]*core.TimerJob, error) {
	var jobs []*core.TimerJob
	err := retryWithBackoff(ctx, *w.config.AcquireRetry, func() error {
		var acquireErr error
		jobs, acquireErr = w.queue.Storage().AcquireDueTimerJobs(ctx, w.config.WorkerID, limit, w.config.LockTimeout)
		return acquireErr
	})
	return jobs, err
}

func (w *Worker) processJob(ctx context.Context, job *core.TimerJob) {
	startTime := time.Now()
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("handler_type", job.HandlerType),
	)

	h, ok := w.queue.Handler(job.HandlerType)
	if !ok {
		log.Error("no handler for timer job")
		w.handleError(ctx, log, job, fmt.Errorf("%w: %q", core.ErrNoHandler, job.HandlerType))
		return
	}

	var (
		finalized   []*core.BatchFinalized
		rescheduled bool
		nextRunAt   time.Time
	)
	err := w.queue.Storage().InTransaction(ctx, func(tx core.Storage) error {
		stores := tx.Stores()
		recorder := &finalizeRecorder{BatchStore: stores.Batches, job: job}
		stores.Batches = recorder

		jobCtx := intctx.WithJobContext(ctx, &intctx.JobContext{
			Job:       job,
			WorkerID:  w.config.WorkerID,
			StartedAt: startTime,
		})
		if err := handler.Execute(jobCtx, h, job, stores); err != nil {
			return err
		}
		finalized = recorder.finalized

		next, ok, err := schedule.NextDue(job.Repeat, time.Now())
		if err != nil {
			return core.NoRetry(fmt.Errorf("invalid repeat %s: %w", job.Repeat, err))
		}
		if ok {
			rescheduled, nextRunAt = true, next
			return tx.RescheduleTimerJob(ctx, job.ID, w.config.WorkerID, next)
		}
		return tx.DeleteTimerJob(ctx, job.ID, w.config.WorkerID)
	})
	if err != nil {
		w.handleError(ctx, log, job, err)
		return
	}

	duration := time.Since(startTime)
	for _, e := range finalized {
		log.Info("batch finalized", zap.String("batch_id", e.BatchID), zap.String("status", string(e.Status)))
		w.queue.Emit(e)
	}
	if rescheduled {
		if job.MaxRetries > 0 {
			job.Retries = job.MaxRetries
		}
		log.Debug("timer job rescheduled", zap.Time("next_run_at", nextRunAt), zap.Duration("duration", duration))
		w.queue.Emit(&core.JobRescheduled{Job: job, NextRunAt: nextRunAt, Timestamp: time.Now()})
	} else {
		log.Debug("timer job done", zap.Duration("duration", duration))
	}
	w.queue.CallExecutedHooks(ctx, job)
	w.queue.Emit(&core.JobExecuted{Job: job, Duration: duration, Timestamp: time.Now()})
}

func (w *Worker) handleError(ctx context.Context, log *zap.Logger, job *core.TimerJob, err error) {
	if errors.Is(err, core.ErrJobNotOwned) {
		// Another worker took over after our lease expired.
		log.Warn("lost timer job lease", zap.Error(err))
		return
	}

	retries := job.Retries - 1
	var noRetry *core.NoRetryError
	if errors.As(err, &noRetry) || retries <= 0 {
		log.Error("timer job failed permanently", zap.Error(err))
		w.failWithRetry(ctx, log, job, err.Error(), 0, nil)
		job.Retries = 0
		w.queue.CallFailedHooks(ctx, job, err)
		w.queue.Emit(&core.JobFailed{Job: job, Error: err, Timestamp: time.Now()})
		return
	}

	delay := w.config.RetryWait
	var retryAfter *core.RetryAfterError
	if errors.As(err, &retryAfter) {
		delay = retryAfter.Delay
	}
	retryAt := time.Now().Add(delay)

	log.Warn("timer job failed, will retry", zap.Error(err), zap.Int("retries_left", retries), zap.Time("retry_at", retryAt))
	w.failWithRetry(ctx, log, job, err.Error(), retries, &retryAt)
	job.Retries = retries
	w.queue.CallRetryHooks(ctx, job, retries, err)
	w.queue.Emit(&core.JobRetrying{Job: job, Retries: retries, Error: err, NextRunAt: retryAt, Timestamp: time.Now()})
}

// failWithRetry records a failed run with retry on transient storage failures.
func (w *Worker) failWithRetry(ctx context.Context, log *zap.Logger, job *core.TimerJob, errMsg string, retries int, retryAt *time.Time) {
	err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		return w.queue.Storage().FailTimerJob(ctx, job.ID, w.config.WorkerID, errMsg, retries, retryAt)
	})
	if err != nil {
		log.Error("failed to record timer job failure after retries", zap.Error(err))
	}
}

// runReaper releases expired locks every LockTimeout.
func (w *Worker) runReaper(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.LockTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ReleaseStaleLocks(ctx)
		}
	}
}

// ReleaseStaleLocks hands jobs whose lease expired back to the pool of due jobs.
func (w *Worker) ReleaseStaleLocks(ctx context.Context) int64 {
	var released int64
	err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		var releaseErr error
		released, releaseErr = w.queue.Storage().ReleaseStaleLocks(ctx)
		return releaseErr
	})
	if err != nil {
		w.logger.Warn("failed to release stale locks", zap.Error(err))
		return 0
	}
	if released > 0 {
		w.logger.Info("released stale timer job locks", zap.Int64("count", released))
	}
	return released
}

// finalizeRecorder remembers successful batch finalizations so they can be
// announced once the transaction commits.
type finalizeRecorder struct {
	core.BatchStore
	job       *core.TimerJob
	finalized []*core.BatchFinalized
}

func (r *finalizeRecorder) CompleteBatch(ctx context.Context, batchID string, status core.BatchStatus) error {
	if err := r.BatchStore.CompleteBatch(ctx, batchID, status); err != nil {
		return err
	}
	r.finalized = append(r.finalized, &core.BatchFinalized{
		Job:       r.job,
		BatchID:   batchID,
		Status:    status,
		Timestamp: time.Now(),
	})
	return nil
}
