package core

import "context"

// Stores bundles the collaborators a handler may touch during one run.
// The worker binds both to the transaction the run executes in.
type Stores struct {
	Batches BatchStore
	Parts   BatchPartStore
}

// JobHandler runs a timer job. Execute receives the job record so it can
// clear its repeat directive, the job's opaque configuration, and the stores
// it may read or mutate. A nil return commits the run.
type JobHandler interface {
	Type() string
	Execute(ctx context.Context, job *TimerJob, configuration string, stores Stores) error
}

// JobHandlerFunc adapts a function to a JobHandler with a fixed type tag.
type JobHandlerFunc struct {
	HandlerType string
	Fn          func(ctx context.Context, job *TimerJob, configuration string, stores Stores) error
}

func (h JobHandlerFunc) Type() string { return h.HandlerType }

func (h JobHandlerFunc) Execute(ctx context.Context, job *TimerJob, configuration string, stores Stores) error {
	return h.Fn(ctx, job, configuration, stores)
}
