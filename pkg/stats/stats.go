// Package stats records per-handler timer job activity in minute buckets.
//
// A Collector subscribes to queue events to count executions, retries,
// dead letters and finalized batches, and periodically snapshots how many
// timer jobs each registered handler has waiting.
package stats

import (
	"context"
	"time"
)

// HandlerStat stores per-handler statistics bucketed by minute.
type HandlerStat struct {
	ID          uint      `gorm:"primaryKey"`
	HandlerType string    `gorm:"index:idx_handler_stats_type_ts;size:255;not null"`
	Timestamp   time.Time `gorm:"index:idx_handler_stats_type_ts;not null"`

	// Snapshot of the timer job table
	Scheduled     int64 `gorm:"default:0"`
	Due           int64 `gorm:"default:0"`
	WithException int64 `gorm:"default:0"`

	// Event counters
	Executed         int64 `gorm:"default:0"`
	Retried          int64 `gorm:"default:0"`
	Failed           int64 `gorm:"default:0"`
	BatchesCompleted int64 `gorm:"default:0"`
	BatchesFailed    int64 `gorm:"default:0"`
}

// Counters are the event-driven columns of a HandlerStat.
type Counters struct {
	Executed         int64
	Retried          int64
	Failed           int64
	BatchesCompleted int64
	BatchesFailed    int64
}

// IsZero reports whether nothing was counted.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// Depth is a snapshot of one handler's timer jobs.
type Depth struct {
	Scheduled     int64
	Due           int64
	WithException int64
}

// Storage is the interface for stats persistence.
type Storage interface {
	MigrateStats(ctx context.Context) error
	UpsertCounters(ctx context.Context, handlerType string, ts time.Time, c Counters) error
	SnapshotDepth(ctx context.Context, handlerType string, ts time.Time, d Depth) error
	GetStatsHistory(ctx context.Context, handlerType string, since time.Time, until time.Time) ([]HandlerStat, error)
	PruneStats(ctx context.Context, before time.Time) (int64, error)
}
