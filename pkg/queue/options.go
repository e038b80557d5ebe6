package queue

import (
	"time"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/security"
)

// Options holds configuration for scheduling a timer job.
type Options struct {
	Repeat        core.Repeat
	Delay         time.Duration
	DueAt         *time.Time
	Retries       int
	Category      string
	TenantID      string
	ScopeID       string
	ScopeType     string
	CorrelationID string
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Repeat:  core.NonRecurring(),
		Retries: DefaultJobRetries,
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// Every makes the job recur at a fixed interval.
func Every(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.Repeat = core.Recurring(d)
	})
}

// CronExpr makes the job recur on a cron expression or descriptor.
func CronExpr(expr string) Option {
	return optionFunc(func(o *Options) {
		o.Repeat = core.RecurringCron(expr)
	})
}

// DueIn makes the first run due after a duration.
func DueIn(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.Delay = d
	})
}

// DueAt makes the first run due at a specific time.
func DueAt(t time.Time) Option {
	return optionFunc(func(o *Options) {
		o.DueAt = &t
	})
}

// Retries sets how many failed runs the job tolerates before it is dead-lettered.
// Values are clamped to [1, MaxRetries] (100).
func Retries(n int) Option {
	return optionFunc(func(o *Options) {
		o.Retries = max(security.ClampRetries(n), 1)
	})
}

// Category tags the job for querying.
func Category(c string) Option {
	return optionFunc(func(o *Options) {
		o.Category = c
	})
}

// Tenant sets the tenant id of the job.
func Tenant(id string) Option {
	return optionFunc(func(o *Options) {
		o.TenantID = id
	})
}

// Scope binds the job to a scope.
func Scope(id, scopeType string) Option {
	return optionFunc(func(o *Options) {
		o.ScopeID = id
		o.ScopeType = scopeType
	})
}

// CorrelationID sets the correlation id of the job.
func CorrelationID(id string) Option {
	return optionFunc(func(o *Options) {
		o.CorrelationID = id
	})
}

// DefaultJobRetries is the number of failed runs a job tolerates by default.
var DefaultJobRetries = 3
