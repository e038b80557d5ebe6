// Package batches runs bulk operations as batches of independently executed
// parts and finalizes each batch with a recurring completion monitor.
//
// This is the main package users should import. It re-exports all public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Create storage and queue
//	db, _ := gorm.Open(sqlite.Open("batches.db"), &gorm.Config{})
//	store := batches.NewGormStorage(db)
//	store.Migrate(context.Background())
//	queue := batches.New(store)
//
//	// Register the completion monitor
//	queue.MustRegister(batches.NewCompletionMonitor())
//
//	// Start a bulk deletion
//	batches.StartDeleteBatch(ctx, store, queue, batches.DeleteRequest{
//	    InstanceIDs:   ids,
//	    CheckInterval: 10 * time.Second,
//	})
//
//	// Start worker
//	worker := queue.NewWorker(batches.PollInterval(time.Second))
//	worker.Start(ctx)
package batches

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/deletebatch"
	"github.com/jdziat/simple-durable-batches/pkg/monitor"
	"github.com/jdziat/simple-durable-batches/pkg/queue"
	"github.com/jdziat/simple-durable-batches/pkg/schedule"
	"github.com/jdziat/simple-durable-batches/pkg/security"
	"github.com/jdziat/simple-durable-batches/pkg/storage"
	"github.com/jdziat/simple-durable-batches/pkg/worker"
)

func init() {
	// Register the worker factory to enable queue.NewWorker()
	queue.WorkerFactory = func(q *queue.Queue, opts ...any) core.Starter {
		workerOpts := make([]worker.WorkerOption, 0, len(opts))
		for _, opt := range opts {
			if wo, ok := opt.(worker.WorkerOption); ok {
				workerOpts = append(workerOpts, wo)
			}
		}
		return worker.NewWorker(q, workerOpts...)
	}
}

// Type aliases
type (
	// Batch groups the parts of one bulk operation.
	Batch = core.Batch

	// BatchStatus represents the lifecycle state of a batch.
	BatchStatus = core.BatchStatus

	// BatchPart is one independently executed unit of a batch.
	BatchPart = core.BatchPart

	// BatchPartStatus is the status tag a worker sets on a batch part.
	BatchPartStatus = core.BatchPartStatus

	// BatchPartQuery selects batch parts for counting.
	BatchPartQuery = core.BatchPartQuery

	// TimerJob is a scheduled unit of work.
	TimerJob = core.TimerJob

	// TimerJobQuery filters and orders timer jobs.
	TimerJobQuery = core.TimerJobQuery

	// Repeat tells the scheduler whether a timer job runs again.
	Repeat = core.Repeat

	// JobHandler runs a timer job.
	JobHandler = core.JobHandler

	// JobHandlerFunc adapts a function to a JobHandler.
	JobHandlerFunc = core.JobHandlerFunc

	// Stores bundles the collaborators a handler may touch.
	Stores = core.Stores

	// Storage defines the persistence layer for batches and timer jobs.
	Storage = core.Storage

	// Event is the interface for all worker events.
	Event = core.Event

	// JobExecuted is emitted when a handler run commits.
	JobExecuted = core.JobExecuted

	// JobRescheduled is emitted when a recurring job is due again.
	JobRescheduled = core.JobRescheduled

	// JobRetrying is emitted when a failed run will be retried.
	JobRetrying = core.JobRetrying

	// JobFailed is emitted when a job is dead-lettered.
	JobFailed = core.JobFailed

	// BatchFinalized is emitted when a batch reaches a terminal status.
	BatchFinalized = core.BatchFinalized

	// NoRetryError indicates an error that should not be retried.
	NoRetryError = core.NoRetryError

	// RetryAfterError indicates an error that should be retried after a delay.
	RetryAfterError = core.RetryAfterError

	// StoreError reports a failed storage operation.
	StoreError = core.StoreError

	// Queue manages handler registration, scheduling, hooks and events.
	Queue = queue.Queue

	// Option modifies Options.
	Option = queue.Option

	// Options holds configuration for scheduling a timer job.
	Options = queue.Options

	// Worker runs due timer jobs.
	Worker = worker.Worker

	// WorkerOption configures a Worker.
	WorkerOption = worker.WorkerOption

	// WorkerConfig holds worker configuration.
	WorkerConfig = worker.WorkerConfig

	// RetryConfig holds configuration for storage retry with backoff.
	RetryConfig = worker.RetryConfig

	// CompletionMonitor drives one batch to a terminal status.
	CompletionMonitor = monitor.CompletionMonitor

	// MonitorOption configures a CompletionMonitor.
	MonitorOption = monitor.Option

	// DeleteRequest describes one bulk deletion.
	DeleteRequest = deletebatch.Request

	// DeleteResult is what StartDeleteBatch created.
	DeleteResult = deletebatch.Result

	// Schedule defines when a recurring job runs next.
	Schedule = schedule.Schedule

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption configures connection pool settings.
	PoolOption = storage.PoolOption
)

// Status constants
const (
	BatchStatusInProgress = core.BatchStatusInProgress
	BatchStatusCompleted  = core.BatchStatusCompleted
	BatchStatusFailed     = core.BatchStatusFailed

	PartStatusWaiting   = core.PartStatusWaiting
	PartStatusCompleted = core.PartStatusCompleted
	PartStatusFailed    = core.PartStatusFailed
)

// Sort directions
const (
	Asc  = core.Asc
	Desc = core.Desc
)

// Monitor tags
const (
	MonitorHandlerType = monitor.HandlerType
	DeletePartType     = monitor.PartType
	DeleteBatchType    = monitor.BatchType
)

// Security limits
const (
	MaxHandlerTypeLength  = security.MaxHandlerTypeLength
	MaxConfigurationSize  = security.MaxConfigurationSize
	MaxRetries            = security.MaxRetries
	MaxConcurrency        = security.MaxConcurrency
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// Error variables
var (
	ErrInvalidHandlerType    = core.ErrInvalidHandlerType
	ErrHandlerTypeTooLong    = core.ErrHandlerTypeTooLong
	ErrConfigurationTooLarge = core.ErrConfigurationTooLarge
	ErrDuplicateHandler      = core.ErrDuplicateHandler
	ErrNoHandler             = core.ErrNoHandler
	ErrJobNotOwned           = core.ErrJobNotOwned
	ErrInvalidConfiguration  = core.ErrInvalidConfiguration
	ErrBatchNotFound         = core.ErrBatchNotFound
	ErrBatchPartNotFound     = core.ErrBatchPartNotFound
	ErrBatchTerminal         = core.ErrBatchTerminal
	ErrInvalidBatchStatus    = core.ErrInvalidBatchStatus
	ErrStoreUnavailable      = core.ErrStoreUnavailable
)

// New creates a new Queue with the given storage backend.
func New(s Storage) *Queue {
	return queue.New(s)
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// NewGormStorageWithPool creates a GORM-backed storage with connection pooling configured.
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	return storage.NewGormStorageWithPool(db, opts...)
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return queue.NewOptions()
}

// NewWorker creates a new worker for the given queue.
func NewWorker(q *Queue, opts ...WorkerOption) *Worker {
	return worker.NewWorker(q, opts...)
}

// NewCompletionMonitor creates the batch completion monitor handler.
func NewCompletionMonitor(opts ...MonitorOption) *CompletionMonitor {
	return monitor.New(opts...)
}

// NewTimerJobQuery starts an empty timer job query.
func NewTimerJobQuery() *TimerJobQuery {
	return core.NewTimerJobQuery()
}

// StartDeleteBatch creates a delete batch with its parts and schedules its monitor.
func StartDeleteBatch(ctx context.Context, store Storage, q *Queue, req DeleteRequest) (*DeleteResult, error) {
	return deletebatch.Start(ctx, store, q, req)
}

// PartInstanceIDs returns the instance ids a delete batch part covers.
func PartInstanceIDs(part *BatchPart) ([]string, error) {
	return deletebatch.PartInstanceIDs(part)
}

// NoRetry wraps an error to indicate it should not be retried.
func NoRetry(err error) error {
	return core.NoRetry(err)
}

// RetryAfter wraps an error to indicate it should be retried after a delay.
func RetryAfter(d time.Duration, err error) error {
	return core.RetryAfter(d, err)
}

// ValidateHandlerType validates a handler type tag.
func ValidateHandlerType(name string) error {
	return security.ValidateHandlerType(name)
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage.
func SanitizeErrorMessage(msg string) string {
	return security.SanitizeErrorMessage(msg)
}

// Repeat constructors

// Recurring returns a directive that repeats every interval.
func Recurring(interval time.Duration) Repeat {
	return core.Recurring(interval)
}

// RecurringCron returns a directive that repeats on a cron expression.
func RecurringCron(expr string) Repeat {
	return core.RecurringCron(expr)
}

// NonRecurring returns a directive that stops the job after its next run.
func NonRecurring() Repeat {
	return core.NonRecurring()
}

// Scheduling option functions

// Every makes the job recur at a fixed interval.
func Every(d time.Duration) Option {
	return queue.Every(d)
}

// CronExpr makes the job recur on a cron expression or descriptor.
func CronExpr(expr string) Option {
	return queue.CronExpr(expr)
}

// DueIn makes the first run due after a duration.
func DueIn(d time.Duration) Option {
	return queue.DueIn(d)
}

// DueAt makes the first run due at a specific time.
func DueAt(t time.Time) Option {
	return queue.DueAt(t)
}

// Retries sets how many failed runs the job tolerates.
func Retries(n int) Option {
	return queue.Retries(n)
}

// Category tags the job for querying.
func Category(c string) Option {
	return queue.Category(c)
}

// Tenant sets the tenant id of the job.
func Tenant(id string) Option {
	return queue.Tenant(id)
}

// Scope binds the job to a scope.
func Scope(id, scopeType string) Option {
	return queue.Scope(id, scopeType)
}

// CorrelationID sets the correlation id of the job.
func CorrelationID(id string) Option {
	return queue.CorrelationID(id)
}

// Worker option functions

// PollInterval sets how often the worker looks for due jobs.
func PollInterval(d time.Duration) WorkerOption {
	return worker.PollInterval(d)
}

// BatchSize sets how many due jobs are acquired per poll.
func BatchSize(n int) WorkerOption {
	return worker.BatchSize(n)
}

// Concurrency sets how many jobs run at once.
func Concurrency(n int) WorkerOption {
	return worker.Concurrency(n)
}

// LockTimeout sets how long an acquired job stays leased to a worker.
func LockTimeout(d time.Duration) WorkerOption {
	return worker.LockTimeout(d)
}

// RetryWait sets the delay before a failed run is retried.
func RetryWait(d time.Duration) WorkerOption {
	return worker.RetryWait(d)
}

// WorkerID sets the lock owner name of the worker.
func WorkerID(id string) WorkerOption {
	return worker.WorkerID(id)
}

// WithLogger sets the structured logger of the worker.
func WithLogger(l *zap.Logger) WorkerOption {
	return worker.WithLogger(l)
}

// Monitor option functions

// WithPartType sets the part type tag the monitor counts.
func WithPartType(partType string) MonitorOption {
	return monitor.WithPartType(partType)
}

// WithHandlerType sets the handler type tag the monitor registers under.
func WithHandlerType(handlerType string) MonitorOption {
	return monitor.WithHandlerType(handlerType)
}

// Schedule functions

// EverySchedule creates a schedule that runs at fixed intervals.
func EverySchedule(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Daily creates a schedule that runs at a specific time each day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// Weekly creates a schedule that runs at a specific day and time each week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}

// ParseSchedule parses a cron expression or descriptor.
func ParseSchedule(expr string) (Schedule, error) {
	return schedule.Parse(expr)
}
