package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/security"
)

// sortableColumns limits ORDER BY to the columns TimerJobQuery exposes.
var sortableColumns = map[string]bool{
	"id":                  true,
	"due_date":            true,
	"created_at":          true,
	"retries":             true,
	"process_instance_id": true,
	"execution_id":        true,
	"tenant_id":           true,
}

// CreateTimerJob persists a new timer job.
func (s *GormStorage) CreateTimerJob(ctx context.Context, job *core.TimerJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Repeat.Kind == "" {
		job.Repeat.Kind = core.RepeatNone
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = job.Retries
	}
	return core.StoreUnavailable("create timer job", s.db.WithContext(ctx).Create(job).Error)
}

// GetTimerJob retrieves a timer job by ID. It returns nil, nil when none exists.
func (s *GormStorage) GetTimerJob(ctx context.Context, jobID string) (*core.TimerJob, error) {
	var job core.TimerJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StoreUnavailable("get timer job", err)
	}
	return &job, nil
}

// FindTimerJobs returns the timer jobs matching q, honoring its ordering and paging.
func (s *GormStorage) FindTimerJobs(ctx context.Context, q *core.TimerJobQuery) ([]*core.TimerJob, error) {
	tx := applyTimerJobFilters(s.db.WithContext(ctx).Model(&core.TimerJob{}), q)
	tx = applyTimerJobPaging(tx, q)

	var jobList []*core.TimerJob
	if err := tx.Find(&jobList).Error; err != nil {
		return nil, core.StoreUnavailable("find timer jobs", err)
	}
	return jobList, nil
}

// CountTimerJobs counts the timer jobs matching q. Ordering and paging are ignored.
func (s *GormStorage) CountTimerJobs(ctx context.Context, q *core.TimerJobQuery) (int64, error) {
	var count int64
	err := applyTimerJobFilters(s.db.WithContext(ctx).Model(&core.TimerJob{}), q).Count(&count).Error
	if err != nil {
		return 0, core.StoreUnavailable("count timer jobs", err)
	}
	return count, nil
}

func applyTimerJobFilters(tx *gorm.DB, q *core.TimerJobQuery) *gorm.DB {
	if q == nil {
		return tx
	}

	eq := func(column, value string) {
		if value != "" {
			tx = tx.Where(column+" = ?", value)
		}
	}
	blank := func(column string) {
		tx = tx.Where("(" + column + " IS NULL OR " + column + " = '')")
	}

	eq("id", q.JobIDValue)
	eq("process_instance_id", q.ProcessInstanceIDValue)
	eq("execution_id", q.ExecutionIDValue)
	eq("process_definition_id", q.ProcessDefinitionIDValue)
	eq("case_instance_id", q.CaseInstanceIDValue)
	eq("case_definition_id", q.CaseDefinitionIDValue)
	eq("plan_item_instance_id", q.PlanItemInstanceIDValue)
	eq("scope_id", q.ScopeIDValue)
	eq("sub_scope_id", q.SubScopeIDValue)
	eq("scope_type", q.ScopeTypeValue)
	eq("scope_definition_id", q.ScopeDefinitionIDValue)
	eq("correlation_id", q.CorrelationIDValue)
	eq("element_id", q.ElementIDValue)
	eq("element_name", q.ElementNameValue)
	eq("handler_type", q.HandlerTypeValue)
	eq("category", q.CategoryValue)
	eq("exception_message", q.ExceptionMessageValue)
	eq("tenant_id", q.TenantIDValue)

	if q.NoProcessInstanceID {
		blank("process_instance_id")
	}
	if q.NoScopeID {
		blank("scope_id")
	}
	if q.NoScopeType {
		blank("scope_type")
	}
	if q.NoTenantID {
		blank("tenant_id")
	}
	if q.CategoryLikeValue != "" {
		tx = tx.Where("category LIKE ?", q.CategoryLikeValue)
	}
	if q.TenantIDLikeValue != "" {
		tx = tx.Where("tenant_id LIKE ?", q.TenantIDLikeValue)
	}
	if q.OnlyExecutable {
		now := q.Now
		if now.IsZero() {
			now = time.Now()
		}
		tx = tx.Where("due_date IS NOT NULL AND due_date <= ?", now).Where("retries > 0")
	}
	if q.DueBeforeValue != nil {
		tx = tx.Where("due_date < ?", *q.DueBeforeValue)
	}
	if q.DueAfterValue != nil {
		tx = tx.Where("due_date > ?", *q.DueAfterValue)
	}
	if q.OnlyWithException {
		tx = tx.Where("exception_message IS NOT NULL AND exception_message <> ''")
	}
	return tx
}

func applyTimerJobPaging(tx *gorm.DB, q *core.TimerJobQuery) *gorm.DB {
	if q == nil {
		return tx.Order("id ASC")
	}
	for _, o := range q.Orders {
		if !sortableColumns[o.Column] {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: o.Column},
			Desc:   o.Direction == core.Desc,
		})
	}
	if len(q.Orders) == 0 {
		tx = tx.Order("id ASC")
	}
	if q.LimitValue > 0 {
		tx = tx.Limit(q.LimitValue)
	}
	if q.OffsetValue > 0 {
		tx = tx.Offset(q.OffsetValue)
	}
	return tx
}

// AcquireDueTimerJobs locks up to limit due jobs for workerID.
// On PostgreSQL candidate rows are selected with FOR UPDATE SKIP LOCKED so
// competing workers never contend for the same job.
func (s *GormStorage) AcquireDueTimerJobs(ctx context.Context, workerID string, limit int, lockFor time.Duration) ([]*core.TimerJob, error) {
	now := time.Now()
	lockUntil := now.Add(lockFor)
	var acquired []*core.TimerJob

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&core.TimerJob{})
		if !s.IsSQLite() {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var candidates []*core.TimerJob
		err := query.
			Where("due_date IS NOT NULL AND due_date <= ?", now).
			Where("retries > 0").
			Where("(locked_until IS NULL OR locked_until < ?)", now).
			Order("due_date ASC, id ASC").
			Limit(limit).
			Find(&candidates).Error
		if err != nil {
			return err
		}

		for _, job := range candidates {
			result := tx.Model(&core.TimerJob{}).
				Where("id = ?", job.ID).
				Where("(locked_until IS NULL OR locked_until < ?)", now).
				Updates(map[string]any{
					"locked_by":    workerID,
					"locked_until": lockUntil,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 1 {
				job.LockedBy = workerID
				job.LockedUntil = &lockUntil
				acquired = append(acquired, job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, core.StoreUnavailable("acquire due timer jobs", err)
	}
	return acquired, nil
}

// RescheduleTimerJob releases a job owned by workerID and makes it due at dueDate.
// The retry budget is restored to MaxRetries, so only consecutive failures
// dead-letter a recurring job.
func (s *GormStorage) RescheduleTimerJob(ctx context.Context, jobID string, workerID string, dueDate time.Time) error {
	return s.updateOwned(ctx, "reschedule timer job", jobID, workerID, map[string]any{
		"due_date":          dueDate,
		"retries":           gorm.Expr("CASE WHEN max_retries > 0 THEN max_retries ELSE retries END"),
		"exception_message": "",
		"locked_by":         "",
		"locked_until":      nil,
	})
}

// DeleteTimerJob removes a job owned by workerID.
func (s *GormStorage) DeleteTimerJob(ctx context.Context, jobID string, workerID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND locked_by = ?", jobID, workerID).
		Delete(&core.TimerJob{})
	if result.Error != nil {
		return core.StoreUnavailable("delete timer job", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrJobNotOwned
	}
	return nil
}

// FailTimerJob records a failed run. A nil retryAt leaves the job without a
// due date, so it is never acquired again until repaired.
// Error messages are sanitized before storage.
func (s *GormStorage) FailTimerJob(ctx context.Context, jobID string, workerID string, errMsg string, retries int, retryAt *time.Time) error {
	return s.updateOwned(ctx, "fail timer job", jobID, workerID, map[string]any{
		"exception_message": security.SanitizeErrorMessage(errMsg),
		"retries":           security.ClampRetries(retries),
		"due_date":          retryAt,
		"locked_by":         "",
		"locked_until":      nil,
	})
}

// ReleaseStaleLocks clears locks whose lease has expired.
func (s *GormStorage) ReleaseStaleLocks(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&core.TimerJob{}).
		Where("locked_until IS NOT NULL AND locked_until < ?", time.Now()).
		Updates(map[string]any{
			"locked_by":    "",
			"locked_until": nil,
		})
	if result.Error != nil {
		return 0, core.StoreUnavailable("release stale locks", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStorage) updateOwned(ctx context.Context, op, jobID, workerID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&core.TimerJob{}).
		Where("id = ? AND locked_by = ?", jobID, workerID).
		Updates(updates)
	if result.Error != nil {
		return core.StoreUnavailable(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrJobNotOwned
	}
	return nil
}
