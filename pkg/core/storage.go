package core

import (
	"context"
	"time"
)

// Starter is the interface for starting workers.
type Starter interface {
	Start(ctx context.Context) error
}

// BatchStore looks up and finalizes batches.
type BatchStore interface {
	// GetBatch returns nil without error when no batch has the id.
	GetBatch(ctx context.Context, batchID string) (*Batch, error)

	// CompleteBatch moves a batch to a terminal status. Re-asserting the
	// status a batch already has is a no-op; changing a terminal status
	// returns ErrBatchTerminal.
	CompleteBatch(ctx context.Context, batchID string, status BatchStatus) error
}

// BatchPartStore counts batch parts.
type BatchPartStore interface {
	CountBatchParts(ctx context.Context, q BatchPartQuery) (int64, error)
}

// Storage defines the persistence layer for batches and timer jobs.
type Storage interface {
	BatchStore
	BatchPartStore

	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// InTransaction runs fn against a Storage bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTransaction(ctx context.Context, fn func(tx Storage) error) error

	// Stores returns the handler-facing view of this storage.
	Stores() Stores

	// Batches
	CreateBatch(ctx context.Context, batch *Batch) error

	// Batch parts
	CreateBatchParts(ctx context.Context, parts []*BatchPart) error
	GetBatchParts(ctx context.Context, batchID string) ([]*BatchPart, error)
	UpdateBatchPartStatus(ctx context.Context, partID string, status BatchPartStatus) error
	CompleteBatchPart(ctx context.Context, partID string, status BatchPartStatus, result []byte) error

	// Timer jobs
	CreateTimerJob(ctx context.Context, job *TimerJob) error
	GetTimerJob(ctx context.Context, jobID string) (*TimerJob, error)
	FindTimerJobs(ctx context.Context, q *TimerJobQuery) ([]*TimerJob, error)
	CountTimerJobs(ctx context.Context, q *TimerJobQuery) (int64, error)

	// Locking and execution bookkeeping
	AcquireDueTimerJobs(ctx context.Context, workerID string, limit int, lockFor time.Duration) ([]*TimerJob, error)
	RescheduleTimerJob(ctx context.Context, jobID string, workerID string, dueDate time.Time) error
	DeleteTimerJob(ctx context.Context, jobID string, workerID string) error
	FailTimerJob(ctx context.Context, jobID string, workerID string, errMsg string, retries int, retryAt *time.Time) error
	ReleaseStaleLocks(ctx context.Context) (int64, error)
}
