package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

// fakeStores is an in-memory BatchStore and BatchPartStore.
type fakeStores struct {
	batches map[string]*core.Batch
	parts   []*core.BatchPart

	completeCalls int
	countErr      error
	completeErr   error
}

func newFakeStores() *fakeStores {
	return &fakeStores{batches: make(map[string]*core.Batch)}
}

func (f *fakeStores) stores() core.Stores {
	return core.Stores{Batches: f, Parts: f}
}

func (f *fakeStores) addBatch(id string) {
	f.batches[id] = &core.Batch{ID: id, Type: BatchType, Status: core.BatchStatusInProgress}
}

// addPart adds a part of the monitored type. Completed parts get a completion time.
func (f *fakeStores) addPart(batchID string, status core.BatchPartStatus, completed bool) *core.BatchPart {
	p := &core.BatchPart{
		ID:      batchID + "-" + string(rune('a'+len(f.parts))),
		BatchID: batchID,
		Type:    PartType,
		Status:  status,
	}
	if completed {
		now := time.Now()
		p.CompletedAt = &now
	}
	f.parts = append(f.parts, p)
	return p
}

func (f *fakeStores) GetBatch(_ context.Context, batchID string) (*core.Batch, error) {
	b, ok := f.batches[batchID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStores) CompleteBatch(_ context.Context, batchID string, status core.BatchStatus) error {
	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	b, ok := f.batches[batchID]
	if !ok {
		return core.ErrBatchNotFound
	}
	if b.Status.Terminal() {
		if b.Status == status {
			return nil
		}
		return core.ErrBatchTerminal
	}
	now := time.Now()
	b.Status = status
	b.CompletedAt = &now
	return nil
}

func (f *fakeStores) CountBatchParts(_ context.Context, q core.BatchPartQuery) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n int64
	for _, p := range f.parts {
		if p.BatchID != q.BatchID {
			continue
		}
		if q.Type != "" && p.Type != q.Type {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.CompletedOnly && !p.Completed() {
			continue
		}
		n++
	}
	return n, nil
}

func newMonitorJob(batchID string) *core.TimerJob {
	return &core.TimerJob{
		ID:            "job-" + batchID,
		HandlerType:   HandlerType,
		HandlerConfig: batchID,
		Repeat:        core.Recurring(10 * time.Second),
	}
}

func tick(t *testing.T, m *CompletionMonitor, f *fakeStores, job *core.TimerJob) error {
	t.Helper()
	return m.Execute(context.Background(), job, job.HandlerConfig, f.stores())
}

func TestNew_Defaults(t *testing.T) {
	m := New()
	assert.Equal(t, "delete-historic-case-status", m.Type())
	assert.Equal(t, "deleteCaseInstances", m.PartType())
}

func TestNew_Options(t *testing.T) {
	m := New(WithPartType("purgeHistory"), WithHandlerType("purge-monitor"))
	assert.Equal(t, "purge-monitor", m.Type())
	assert.Equal(t, "purgeHistory", m.PartType())
}

func TestExecute_IncompleteBatchLeftUntouched(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusCompleted, true)
	f.addPart("b", core.PartStatusWaiting, false)
	job := newMonitorJob("b")

	require.NoError(t, tick(t, New(), f, job))

	assert.Equal(t, core.BatchStatusInProgress, f.batches["b"].Status)
	assert.True(t, job.Repeat.IsRecurring(), "repeat must stay active")
	assert.Zero(t, f.completeCalls)
}

func TestExecute_AllCompletedWithoutFailures(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusCompleted, true)
	f.addPart("b", core.PartStatusCompleted, true)
	job := newMonitorJob("b")

	require.NoError(t, tick(t, New(), f, job))

	assert.Equal(t, core.BatchStatusCompleted, f.batches["b"].Status)
	assert.False(t, job.Repeat.IsRecurring())
	assert.Equal(t, 1, f.completeCalls)
}

func TestExecute_AllCompletedWithFailures(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusCompleted, true)
	f.addPart("b", core.PartStatusFailed, true)
	f.addPart("b", core.PartStatusFailed, true)
	job := newMonitorJob("b")

	require.NoError(t, tick(t, New(), f, job))

	assert.Equal(t, core.BatchStatusFailed, f.batches["b"].Status)
	assert.False(t, job.Repeat.IsRecurring())
}

func TestExecute_NoPartsCompletesImmediately(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	job := newMonitorJob("b")

	require.NoError(t, tick(t, New(), f, job))

	assert.Equal(t, core.BatchStatusCompleted, f.batches["b"].Status)
	assert.False(t, job.Repeat.IsRecurring())
}

func TestExecute_IgnoresOtherPartTypes(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	other := f.addPart("b", core.PartStatusWaiting, false)
	other.Type = "somethingElse"
	job := newMonitorJob("b")

	require.NoError(t, tick(t, New(), f, job))

	assert.Equal(t, core.BatchStatusCompleted, f.batches["b"].Status,
		"parts of another type do not hold the batch open")
}

func TestExecute_CustomPartType(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusWaiting, false)
	job := newMonitorJob("b")

	// None of the parts are of the custom type, so the batch has no work.
	require.NoError(t, tick(t, New(WithPartType("purgeHistory")), f, job))
	assert.Equal(t, core.BatchStatusCompleted, f.batches["b"].Status)
}

func TestExecute_Idempotent(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusCompleted, true)
	job := newMonitorJob("b")
	m := New()

	require.NoError(t, tick(t, m, f, job))
	first := *f.batches["b"].CompletedAt

	// A crash after finalizing but before the job was updated reruns the tick
	// against a recurring job.
	job.Repeat = core.Recurring(10 * time.Second)
	require.NoError(t, tick(t, m, f, job))

	assert.Equal(t, core.BatchStatusCompleted, f.batches["b"].Status)
	assert.Equal(t, first, *f.batches["b"].CompletedAt)
	assert.False(t, job.Repeat.IsRecurring())
}

func TestExecute_MissingBatch(t *testing.T) {
	f := newFakeStores()
	job := newMonitorJob("missing")

	err := tick(t, New(), f, job)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	var noRetry *core.NoRetryError
	assert.True(t, errors.As(err, &noRetry), "a missing batch must not be retried")
	assert.Contains(t, err.Error(), "missing")

	assert.Zero(t, f.completeCalls, "no store mutation")
	assert.True(t, job.Repeat.IsRecurring(), "repeat is untouched")
}

func TestExecute_CountErrorPropagatesUnmodified(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	storeErr := core.StoreUnavailable("count batch parts", errors.New("connection reset"))
	f.countErr = storeErr
	job := newMonitorJob("b")

	err := tick(t, New(), f, job)
	assert.Same(t, storeErr, err)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.True(t, job.Repeat.IsRecurring())
	assert.Zero(t, f.completeCalls)
}

func TestExecute_FinalizeErrorKeepsRepeat(t *testing.T) {
	f := newFakeStores()
	f.addBatch("b")
	f.addPart("b", core.PartStatusCompleted, true)
	f.completeErr = errors.New("write failed")
	job := newMonitorJob("b")

	err := tick(t, New(), f, job)
	assert.Equal(t, f.completeErr, err)
	assert.True(t, job.Repeat.IsRecurring(), "repeat is only cleared after the batch is finalized")
}

// ──────────────────────────────────────────────────────────────────────────────
// Literal scenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestScenario_B1(t *testing.T) {
	f := newFakeStores()
	f.addBatch("B1")
	f.addPart("B1", core.PartStatusCompleted, true)
	f.addPart("B1", core.PartStatusCompleted, true)
	third := f.addPart("B1", core.PartStatusFailed, false)
	job := newMonitorJob("B1")
	m := New()

	// total=3, completed=2
	require.NoError(t, tick(t, m, f, job))
	assert.Equal(t, core.BatchStatusInProgress, f.batches["B1"].Status)
	assert.True(t, job.Repeat.IsRecurring())

	// The third part is retried and completes.
	now := time.Now()
	third.Status = core.PartStatusCompleted
	third.CompletedAt = &now

	// total=3, completed=3, failed=0
	require.NoError(t, tick(t, m, f, job))
	assert.Equal(t, core.BatchStatusCompleted, f.batches["B1"].Status)
	assert.False(t, job.Repeat.IsRecurring())
}

func TestScenario_B2(t *testing.T) {
	f := newFakeStores()
	f.addBatch("B2")
	f.addPart("B2", core.PartStatusCompleted, true)
	f.addPart("B2", core.PartStatusFailed, true)
	job := newMonitorJob("B2")

	// total=2, completed=2, failed=1
	require.NoError(t, tick(t, New(), f, job))
	assert.Equal(t, core.BatchStatusFailed, f.batches["B2"].Status)
	assert.False(t, job.Repeat.IsRecurring())
}

func TestScenario_B3(t *testing.T) {
	f := newFakeStores()
	f.addBatch("B3")
	unrelated := f.addPart("B3", core.PartStatusWaiting, false)
	unrelated.Type = "somethingElse"
	job := newMonitorJob("B3")

	require.NoError(t, tick(t, New(), f, job))
	assert.Equal(t, core.BatchStatusCompleted, f.batches["B3"].Status)
	assert.False(t, job.Repeat.IsRecurring())
}
