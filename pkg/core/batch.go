package core

import "time"

// BatchStatus represents the lifecycle state of a batch.
type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// BatchPartStatus is the status tag a worker sets on a batch part.
// Workers may use values beyond the ones declared here.
type BatchPartStatus string

const (
	PartStatusWaiting   BatchPartStatus = "waiting"
	PartStatusCompleted BatchPartStatus = "completed"
	PartStatusFailed    BatchPartStatus = "failed"
)

// Batch groups the parts of one large bulk operation.
type Batch struct {
	ID          string      `gorm:"primaryKey;size:36"`
	Type        string      `gorm:"index;size:255;not null"`
	SearchKey   string      `gorm:"index;size:255"`
	SearchKey2  string      `gorm:"size:255"`
	Status      BatchStatus `gorm:"index;size:20;default:'in_progress'"`
	Document    []byte      `gorm:"type:bytes"` // Serialized request that created the batch
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
	CompletedAt *time.Time
}

// BatchPart is one independently executed unit of a batch.
//
// A part counts as completed once CompletedAt is set, whatever its status.
// A part may carry PartStatusFailed from an earlier attempt while it is
// still being retried; it only finishes when CompletedAt is recorded.
type BatchPart struct {
	ID             string          `gorm:"primaryKey;size:36"`
	BatchID        string          `gorm:"index:idx_batch_parts_batch_type;size:36;not null"`
	Type           string          `gorm:"index:idx_batch_parts_batch_type;size:255;not null"`
	Status         BatchPartStatus `gorm:"index;size:20;default:'waiting'"`
	ScopeID        string          `gorm:"size:255"`
	SubScopeID     string          `gorm:"size:255"`
	ScopeType      string          `gorm:"size:255"`
	SearchKey      string          `gorm:"size:255"`
	Document       []byte          `gorm:"type:bytes"` // Work description for the executor
	ResultDocument []byte          `gorm:"type:bytes"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	CompletedAt    *time.Time      `gorm:"index"`
}

// Completed reports whether the part has finished, successfully or not.
func (p *BatchPart) Completed() bool {
	return p.CompletedAt != nil
}

// BatchPartQuery selects batch parts for counting.
// BatchID is required; the other fields narrow the selection when set.
type BatchPartQuery struct {
	BatchID       string
	Type          string
	Status        BatchPartStatus
	CompletedOnly bool
}
