// Package jobctx provides public access to job context for handlers.
package jobctx

import (
	"context"

	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	intctx "github.com/jdziat/simple-durable-batches/pkg/internal/context"
)

// JobFromContext returns the current TimerJob from context, or nil if not in a job handler.
func JobFromContext(ctx context.Context) *core.TimerJob {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return nil
	}
	return jc.Job
}

// JobIDFromContext returns the current job ID from context, or empty string if not in a job handler.
func JobIDFromContext(ctx context.Context) string {
	job := JobFromContext(ctx)
	if job == nil {
		return ""
	}
	return job.ID
}

// WorkerIDFromContext returns the ID of the worker running the current job.
func WorkerIDFromContext(ctx context.Context) string {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return ""
	}
	return jc.WorkerID
}

// LogFields returns zap fields identifying the current job, for handlers
// that log. It returns nil outside a job handler.
func LogFields(ctx context.Context) []zap.Field {
	jc := intctx.GetJobContext(ctx)
	if jc == nil || jc.Job == nil {
		return nil
	}
	return []zap.Field{
		zap.String("job_id", jc.Job.ID),
		zap.String("handler_type", jc.Job.HandlerType),
		zap.String("worker_id", jc.WorkerID),
	}
}
