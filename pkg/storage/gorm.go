// Package storage provides storage implementations for the batches package.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

var terminalBatchStatuses = []core.BatchStatus{core.BatchStatusCompleted, core.BatchStatusFailed}

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying *gorm.DB.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage runs on SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Batch{}, &core.BatchPart{}, &core.TimerJob{})
}

// InTransaction runs fn against a storage bound to one transaction.
func (s *GormStorage) InTransaction(ctx context.Context, fn func(tx core.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStorage{db: tx})
	})
}

// Stores returns the handler-facing view of this storage.
func (s *GormStorage) Stores() core.Stores {
	return core.Stores{Batches: s, Parts: s}
}

// CreateBatch persists a new batch.
func (s *GormStorage) CreateBatch(ctx context.Context, batch *core.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Status == "" {
		batch.Status = core.BatchStatusInProgress
	}
	return core.StoreUnavailable("create batch", s.db.WithContext(ctx).Create(batch).Error)
}

// GetBatch retrieves a batch by ID. It returns nil, nil when none exists.
func (s *GormStorage) GetBatch(ctx context.Context, batchID string) (*core.Batch, error) {
	var batch core.Batch
	err := s.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StoreUnavailable("get batch", err)
	}
	return &batch, nil
}

// CompleteBatch moves a batch to a terminal status.
// Only non-terminal rows are updated, so a repeated call with the same
// status leaves the row, including its completion time, untouched.
func (s *GormStorage) CompleteBatch(ctx context.Context, batchID string, status core.BatchStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q", core.ErrInvalidBatchStatus, status)
	}

	result := s.db.WithContext(ctx).
		Model(&core.Batch{}).
		Where("id = ?", batchID).
		Where("status NOT IN ?", terminalBatchStatuses).
		Updates(map[string]any{
			"status":       status,
			"completed_at": time.Now(),
		})
	if result.Error != nil {
		return core.StoreUnavailable("complete batch", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: %s", core.ErrBatchNotFound, batchID)
	}
	if batch.Status == status {
		return nil
	}
	return fmt.Errorf("%w: batch %s is %s, cannot become %s", core.ErrBatchTerminal, batchID, batch.Status, status)
}

// CreateBatchParts inserts parts for one or more batches. Every owning
// batch must exist and still be in progress.
func (s *GormStorage) CreateBatchParts(ctx context.Context, parts []*core.BatchPart) error {
	if len(parts) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checked := make(map[string]bool)
		for _, part := range parts {
			if !checked[part.BatchID] {
				var batch core.Batch
				err := tx.Select("id", "status").First(&batch, "id = ?", part.BatchID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", core.ErrBatchNotFound, part.BatchID)
				}
				if err != nil {
					return core.StoreUnavailable("create batch parts", err)
				}
				if batch.Status.Terminal() {
					return fmt.Errorf("%w: batch %s is %s", core.ErrBatchTerminal, batch.ID, batch.Status)
				}
				checked[part.BatchID] = true
			}

			if part.ID == "" {
				part.ID = uuid.New().String()
			}
			if part.Status == "" {
				part.Status = core.PartStatusWaiting
			}
		}
		return core.StoreUnavailable("create batch parts", tx.Create(&parts).Error)
	})
}

// GetBatchParts returns all parts of a batch in creation order.
func (s *GormStorage) GetBatchParts(ctx context.Context, batchID string) ([]*core.BatchPart, error) {
	var parts []*core.BatchPart
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC, id ASC").
		Find(&parts).Error
	if err != nil {
		return nil, core.StoreUnavailable("get batch parts", err)
	}
	return parts, nil
}

// CountBatchParts counts the parts matching q.
func (s *GormStorage) CountBatchParts(ctx context.Context, q core.BatchPartQuery) (int64, error) {
	if q.BatchID == "" {
		return 0, errors.New("batches: batch part query requires a batch id")
	}

	tx := s.db.WithContext(ctx).
		Model(&core.BatchPart{}).
		Where("batch_id = ?", q.BatchID)
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.CompletedOnly {
		tx = tx.Where("completed_at IS NOT NULL")
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, core.StoreUnavailable("count batch parts", err)
	}
	return count, nil
}

// UpdateBatchPartStatus records an intermediate status, such as a failed
// attempt that will be retried, without completing the part.
func (s *GormStorage) UpdateBatchPartStatus(ctx context.Context, partID string, status core.BatchPartStatus) error {
	result := s.db.WithContext(ctx).
		Model(&core.BatchPart{}).
		Where("id = ?", partID).
		Update("status", status)
	if result.Error != nil {
		return core.StoreUnavailable("update batch part status", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrBatchPartNotFound, partID)
	}
	return nil
}

// CompleteBatchPart finishes a part with its final status and result.
// Completing an already completed part is a no-op.
func (s *GormStorage) CompleteBatchPart(ctx context.Context, partID string, status core.BatchPartStatus, result []byte) error {
	res := s.db.WithContext(ctx).
		Model(&core.BatchPart{}).
		Where("id = ? AND completed_at IS NULL", partID).
		Updates(map[string]any{
			"status":          status,
			"result_document": result,
			"completed_at":    time.Now(),
		})
	if res.Error != nil {
		return core.StoreUnavailable("complete batch part", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&core.BatchPart{}).Where("id = ?", partID).Count(&count).Error; err != nil {
		return core.StoreUnavailable("complete batch part", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", core.ErrBatchPartNotFound, partID)
	}
	return nil
}
