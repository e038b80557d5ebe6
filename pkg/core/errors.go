package core

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors
var (
	ErrInvalidHandlerType    = errors.New("batches: invalid handler type (must be alphanumeric, start with letter)")
	ErrHandlerTypeTooLong    = errors.New("batches: handler type too long")
	ErrConfigurationTooLarge = errors.New("batches: job configuration exceeds size limit")
	ErrDuplicateHandler      = errors.New("batches: handler already registered")
	ErrNoHandler             = errors.New("batches: no handler registered")
	ErrJobNotOwned           = errors.New("batches: job not owned by this worker")
)

// Batch errors
var (
	// ErrInvalidConfiguration is returned when a job's configuration references
	// a batch that does not exist. Re-running the job cannot fix it.
	ErrInvalidConfiguration = errors.New("batches: invalid job configuration")
	ErrBatchNotFound        = errors.New("batches: batch not found")
	ErrBatchPartNotFound    = errors.New("batches: batch part not found")
	ErrBatchTerminal        = errors.New("batches: batch already in a terminal status")
	ErrInvalidBatchStatus   = errors.New("batches: not a terminal batch status")
)

// ErrStoreUnavailable matches every StoreError via errors.Is.
var ErrStoreUnavailable = errors.New("batches: store unavailable")

// StoreError wraps a failure of the underlying database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("batches: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreUnavailable) hold for any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// StoreUnavailable wraps a database error for the named operation.
// It returns nil when err is nil.
func StoreUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// NoRetryError indicates an error that should not be retried.
type NoRetryError struct {
	Err error
}

func (e *NoRetryError) Error() string {
	return fmt.Sprintf("no retry: %v", e.Err)
}

func (e *NoRetryError) Unwrap() error {
	return e.Err
}

// NoRetry wraps an error to indicate it should not be retried.
func NoRetry(err error) error {
	return &NoRetryError{Err: err}
}

// RetryAfterError indicates an error that should be retried after a delay.
type RetryAfterError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %v: %v", e.Delay, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryAfter wraps an error to indicate it should be retried after a delay.
func RetryAfter(d time.Duration, err error) error {
	return &RetryAfterError{Err: err, Delay: d}
}
