package worker

import (
	"time"

	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-batches/pkg/security"
)

// WorkerOption configures a Worker.
type WorkerOption interface {
	ApplyWorker(*WorkerConfig)
}

type workerOptionFunc func(*WorkerConfig)

func (f workerOptionFunc) ApplyWorker(c *WorkerConfig) { f(c) }

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int           // max jobs acquired per poll
	Concurrency  int           // size of the execution pool
	LockTimeout  time.Duration // lease on an acquired job
	RetryWait    time.Duration // delay before a failed run is retried
	WorkerID     string
	Logger       *zap.Logger
	StorageRetry *RetryConfig
	AcquireRetry *RetryConfig
}

// PollInterval sets how often the worker looks for due jobs.
func PollInterval(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.PollInterval = d
	})
}

// BatchSize sets how many due jobs are acquired per poll.
func BatchSize(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.BatchSize = max(n, 1)
	})
}

// Concurrency sets how many jobs run at once.
// Values are clamped to [1, MaxConcurrency].
func Concurrency(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// LockTimeout sets how long an acquired job stays leased to this worker.
// Locks older than this are released by the reaper.
func LockTimeout(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.LockTimeout = d
	})
}

// RetryWait sets the delay before a failed run is retried.
// A handler returning core.RetryAfter overrides it.
func RetryWait(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.RetryWait = d
	})
}

// WorkerID sets the lock owner id. Defaults to a random UUID.
func WorkerID(id string) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.WorkerID = id
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Logger = l
	})
}

// WithStorageRetry configures retry for job bookkeeping and lock release.
func WithStorageRetry(cfg RetryConfig) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.StorageRetry = &cfg
	})
}

// WithAcquireRetry configures retry for acquiring due jobs.
func WithAcquireRetry(cfg RetryConfig) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.AcquireRetry = &cfg
	})
}

// WithRetryAttempts sets the storage retry attempts, keeping the other defaults.
func WithRetryAttempts(attempts int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		cfg := DefaultRetryConfig()
		cfg.MaxAttempts = attempts
		c.StorageRetry = &cfg
	})
}

// DisableRetry makes every storage call a single attempt.
func DisableRetry() WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		cfg := RetryConfig{MaxAttempts: 1}
		c.StorageRetry = &cfg
		acquire := cfg
		c.AcquireRetry = &acquire
	})
}
