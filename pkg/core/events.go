package core

import "time"

// Event is the interface for all worker events.
type Event interface {
	eventMarker()
}

// JobExecuted is emitted when a handler run commits.
type JobExecuted struct {
	Job       *TimerJob
	Duration  time.Duration
	Timestamp time.Time
}

func (*JobExecuted) eventMarker() {}

// JobRescheduled is emitted when a recurring job is due again.
type JobRescheduled struct {
	Job       *TimerJob
	NextRunAt time.Time
	Timestamp time.Time
}

func (*JobRescheduled) eventMarker() {}

// JobRetrying is emitted when a failed run will be retried.
type JobRetrying struct {
	Job       *TimerJob
	Retries   int
	Error     error
	NextRunAt time.Time
	Timestamp time.Time
}

func (*JobRetrying) eventMarker() {}

// JobFailed is emitted when a job is dead-lettered.
type JobFailed struct {
	Job       *TimerJob
	Error     error
	Timestamp time.Time
}

func (*JobFailed) eventMarker() {}

// BatchFinalized is emitted when a batch reaches a terminal status.
type BatchFinalized struct {
	Job       *TimerJob // monitor run that finalized the batch
	BatchID   string
	Status    BatchStatus
	Timestamp time.Time
}

func (*BatchFinalized) eventMarker() {}
