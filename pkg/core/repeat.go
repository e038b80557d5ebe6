package core

import (
	"fmt"
	"time"
)

// RepeatKind tags the state of a Repeat directive.
type RepeatKind string

const (
	RepeatNone      RepeatKind = "none"
	RepeatRecurring RepeatKind = "recurring"
)

// Repeat tells the scheduler whether a timer job runs again after a
// successful execution. It is either Recurring, carrying a schedule
// expression, or NonRecurring. The zero value is NonRecurring.
type Repeat struct {
	Kind RepeatKind `gorm:"size:16;default:'none'"`
	// Expr is a robfig/cron expression, including descriptors such as "@every 10s".
	Expr string `gorm:"size:255"`
}

// Recurring returns a directive that repeats every interval.
func Recurring(interval time.Duration) Repeat {
	return Repeat{Kind: RepeatRecurring, Expr: fmt.Sprintf("@every %s", interval)}
}

// RecurringCron returns a directive that repeats on a cron expression.
func RecurringCron(expr string) Repeat {
	return Repeat{Kind: RepeatRecurring, Expr: expr}
}

// NonRecurring returns a directive that stops the job after its next successful run.
func NonRecurring() Repeat {
	return Repeat{Kind: RepeatNone}
}

// IsRecurring reports whether the job should be rescheduled.
func (r Repeat) IsRecurring() bool {
	return r.Kind == RepeatRecurring && r.Expr != ""
}

func (r Repeat) String() string {
	if r.IsRecurring() {
		return "recurring(" + r.Expr + ")"
	}
	return "non-recurring"
}
