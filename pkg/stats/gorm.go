package stats

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// gormStorage implements Storage using GORM.
type gormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a GORM-backed stats storage.
func NewGormStorage(db *gorm.DB) Storage {
	return &gormStorage{db: db}
}

func (s *gormStorage) MigrateStats(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&HandlerStat{})
}

// bucket returns the row for handlerType at ts, or nil if there is none yet.
func (s *gormStorage) bucket(ctx context.Context, handlerType string, ts time.Time) (*HandlerStat, error) {
	var existing HandlerStat
	err := s.db.WithContext(ctx).
		Where("handler_type = ? AND timestamp = ?", handlerType, ts).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, nil
}

func (s *gormStorage) UpsertCounters(ctx context.Context, handlerType string, ts time.Time, c Counters) error {
	ts = ts.Truncate(time.Minute)

	existing, err := s.bucket(ctx, handlerType, ts)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.db.WithContext(ctx).Create(&HandlerStat{
			HandlerType:      handlerType,
			Timestamp:        ts,
			Executed:         c.Executed,
			Retried:          c.Retried,
			Failed:           c.Failed,
			BatchesCompleted: c.BatchesCompleted,
			BatchesFailed:    c.BatchesFailed,
		}).Error
	}

	return s.db.WithContext(ctx).Model(existing).Updates(map[string]any{
		"executed":          gorm.Expr("executed + ?", c.Executed),
		"retried":           gorm.Expr("retried + ?", c.Retried),
		"failed":            gorm.Expr("failed + ?", c.Failed),
		"batches_completed": gorm.Expr("batches_completed + ?", c.BatchesCompleted),
		"batches_failed":    gorm.Expr("batches_failed + ?", c.BatchesFailed),
	}).Error
}

func (s *gormStorage) SnapshotDepth(ctx context.Context, handlerType string, ts time.Time, d Depth) error {
	ts = ts.Truncate(time.Minute)

	existing, err := s.bucket(ctx, handlerType, ts)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.db.WithContext(ctx).Create(&HandlerStat{
			HandlerType:   handlerType,
			Timestamp:     ts,
			Scheduled:     d.Scheduled,
			Due:           d.Due,
			WithException: d.WithException,
		}).Error
	}

	return s.db.WithContext(ctx).Model(existing).Updates(map[string]any{
		"scheduled":      d.Scheduled,
		"due":            d.Due,
		"with_exception": d.WithException,
	}).Error
}

func (s *gormStorage) GetStatsHistory(ctx context.Context, handlerType string, since time.Time, until time.Time) ([]HandlerStat, error) {
	var stats []HandlerStat
	q := s.db.WithContext(ctx).Order("timestamp ASC")

	if handlerType != "" {
		q = q.Where("handler_type = ?", handlerType)
	}
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since)
	}
	if !until.IsZero() {
		q = q.Where("timestamp <= ?", until)
	}

	return stats, q.Find(&stats).Error
}

func (s *gormStorage) PruneStats(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&HandlerStat{})
	return result.RowsAffected, result.Error
}
