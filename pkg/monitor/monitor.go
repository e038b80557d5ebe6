package monitor

import (
	"context"
	"fmt"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

const (
	// HandlerType is the default handler type tag of the monitor job.
	HandlerType = "delete-historic-case-status"

	// PartType is the default part type the monitor counts.
	PartType = "deleteCaseInstances"

	// BatchType is the type of batches created for case instance deletion.
	BatchType = "case-instance-delete"
)

// CompletionMonitor drives one batch to a terminal status.
// The job configuration is the id of the batch to watch.
type CompletionMonitor struct {
	handlerType string
	partType    string
}

// Option configures a CompletionMonitor.
type Option interface {
	apply(*CompletionMonitor)
}

type optionFunc func(*CompletionMonitor)

func (f optionFunc) apply(m *CompletionMonitor) { f(m) }

// WithPartType sets the part type tag the monitor counts.
func WithPartType(partType string) Option {
	return optionFunc(func(m *CompletionMonitor) {
		m.partType = partType
	})
}

// WithHandlerType sets the handler type tag the monitor registers under.
func WithHandlerType(handlerType string) Option {
	return optionFunc(func(m *CompletionMonitor) {
		m.handlerType = handlerType
	})
}

// New creates a CompletionMonitor.
func New(opts ...Option) *CompletionMonitor {
	m := &CompletionMonitor{
		handlerType: HandlerType,
		partType:    PartType,
	}
	for _, opt := range opts {
		opt.apply(m)
	}
	return m
}

// Type returns the handler type tag.
func (m *CompletionMonitor) Type() string {
	return m.handlerType
}

// PartType returns the part type tag the monitor counts.
func (m *CompletionMonitor) PartType() string {
	return m.partType
}

// Execute runs one tick for the batch named by configuration.
//
// A missing batch fails with ErrInvalidConfiguration wrapped in NoRetry.
// Store errors are returned unmodified.
func (m *CompletionMonitor) Execute(ctx context.Context, job *core.TimerJob, configuration string, stores core.Stores) error {
	batchID := configuration

	batch, err := stores.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return core.NoRetry(fmt.Errorf("%w: there is no batch with the id %q", core.ErrInvalidConfiguration, batchID))
	}

	total, err := stores.Parts.CountBatchParts(ctx, core.BatchPartQuery{
		BatchID: batchID,
		Type:    m.partType,
	})
	if err != nil {
		return err
	}
	completed, err := stores.Parts.CountBatchParts(ctx, core.BatchPartQuery{
		BatchID:       batchID,
		Type:          m.partType,
		CompletedOnly: true,
	})
	if err != nil {
		return err
	}

	switch {
	case total > 0 && total == completed:
		failed, err := stores.Parts.CountBatchParts(ctx, core.BatchPartQuery{
			BatchID:       batchID,
			Type:          m.partType,
			Status:        core.PartStatusFailed,
			CompletedOnly: true,
		})
		if err != nil {
			return err
		}
		status := core.BatchStatusCompleted
		if failed > 0 {
			status = core.BatchStatusFailed
		}
		return m.finalize(ctx, job, stores, batchID, status)

	case total == 0:
		return m.finalize(ctx, job, stores, batchID, core.BatchStatusCompleted)

	default:
		return nil
	}
}

// finalize completes the batch first, then clears the repeat directive.
func (m *CompletionMonitor) finalize(ctx context.Context, job *core.TimerJob, stores core.Stores, batchID string, status core.BatchStatus) error {
	if err := stores.Batches.CompleteBatch(ctx, batchID, status); err != nil {
		return err
	}
	job.ClearRepeat()
	return nil
}
