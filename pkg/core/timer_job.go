package core

import (
	"time"
)

// TimerJob is a scheduled unit of work. The worker invokes the handler
// registered for HandlerType each time the job falls due, and keeps doing
// so while Repeat is recurring.
type TimerJob struct {
	ID               string     `gorm:"primaryKey;size:36"`
	HandlerType      string     `gorm:"index;size:255;not null"`
	HandlerConfig    string     `gorm:"type:text"` // Opaque payload handed to the handler
	Repeat           Repeat     `gorm:"embedded;embeddedPrefix:repeat_"`
	Retries          int        `gorm:"index;default:3"`
	MaxRetries       int        `gorm:"default:3"` // Retries restored after each successful run
	DueDate          *time.Time `gorm:"index"`
	ExceptionMessage string     `gorm:"type:text"`
	Category         string     `gorm:"index;size:255"`

	// Owning process or case
	ProcessInstanceID   string `gorm:"index;size:64"`
	ExecutionID         string `gorm:"size:64"`
	ProcessDefinitionID string `gorm:"size:64"`
	CaseInstanceID      string `gorm:"index;size:64"`
	CaseDefinitionID    string `gorm:"size:64"`
	PlanItemInstanceID  string `gorm:"size:64"`

	// Generic scope
	ScopeID           string `gorm:"index;size:255"`
	SubScopeID        string `gorm:"size:255"`
	ScopeType         string `gorm:"size:255"`
	ScopeDefinitionID string `gorm:"size:255"`
	CorrelationID     string `gorm:"index;size:255"`
	ElementID         string `gorm:"size:255"`
	ElementName       string `gorm:"size:255"`
	TenantID          string `gorm:"index;size:255"`

	LockedBy    string     `gorm:"size:255"`
	LockedUntil *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

// ClearRepeat stops the job from being rescheduled after the current run.
func (j *TimerJob) ClearRepeat() {
	j.Repeat = NonRecurring()
}

// DeadLettered reports whether the job has exhausted its retries.
func (j *TimerJob) DeadLettered() bool {
	return j.Retries <= 0
}
