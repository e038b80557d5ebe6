package batches_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	batches "github.com/jdziat/simple-durable-batches"
)

func openFileStorage(t *testing.T) *batches.GormStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batches.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := batches.NewGormStorageWithPool(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// completeParts plays the part executor: every part is finished with the
// given status.
func completeParts(t *testing.T, store *batches.GormStorage, parts []*batches.BatchPart, status func(ids []string) batches.BatchPartStatus) {
	t.Helper()
	for _, p := range parts {
		ids, err := batches.PartInstanceIDs(p)
		require.NoError(t, err)
		require.NoError(t, store.CompleteBatchPart(context.Background(), p.ID, status(ids), nil))
	}
}

func batchStatus(store *batches.GormStorage, id string) batches.BatchStatus {
	b, err := store.GetBatch(context.Background(), id)
	if err != nil || b == nil {
		return ""
	}
	return b.Status
}

func TestIntegration_DeleteBatchesFinalize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	store := openFileStorage(t)
	q := batches.New(store)
	q.MustRegister(batches.NewCompletionMonitor())

	events := q.Events()
	defer q.Unsubscribe(events)

	ctx := context.Background()
	good, err := batches.StartDeleteBatch(ctx, store, q, batches.DeleteRequest{
		InstanceIDs:   []string{"a", "b", "c", "d", "e"},
		PartSize:      2,
		CheckInterval: time.Second,
		SearchKey:     "good",
	})
	require.NoError(t, err)
	bad, err := batches.StartDeleteBatch(ctx, store, q, batches.DeleteRequest{
		InstanceIDs:   []string{"x", "y", "z"},
		PartSize:      1,
		CheckInterval: time.Second,
		SearchKey:     "bad",
	})
	require.NoError(t, err)

	completeParts(t, store, good.Parts, func([]string) batches.BatchPartStatus {
		return batches.PartStatusCompleted
	})
	completeParts(t, store, bad.Parts, func(ids []string) batches.BatchPartStatus {
		if ids[0] == "y" {
			return batches.PartStatusFailed
		}
		return batches.PartStatusCompleted
	})

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	w := batches.NewWorker(q,
		batches.PollInterval(20*time.Millisecond),
		batches.Concurrency(2),
		batches.WorkerID("integration"),
	)
	go func() { done <- w.Start(workerCtx) }()

	require.Eventually(t, func() bool {
		return batchStatus(store, good.Batch.ID) == batches.BatchStatusCompleted &&
			batchStatus(store, bad.Batch.ID) == batches.BatchStatusFailed
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		n, err := store.CountTimerJobs(ctx, batches.NewTimerJobQuery().HandlerType(batches.MonitorHandlerType))
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond, "monitor jobs are removed once their batch is final")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	for _, id := range []string{good.Batch.ID, bad.Batch.ID} {
		b, err := store.GetBatch(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, b.CompletedAt)
	}

	statuses := map[string]batches.BatchStatus{}
	for len(events) > 0 {
		if bf, ok := (<-events).(*batches.BatchFinalized); ok {
			statuses[bf.BatchID] = bf.Status
		}
	}
	assert.Equal(t, map[string]batches.BatchStatus{
		good.Batch.ID: batches.BatchStatusCompleted,
		bad.Batch.ID:  batches.BatchStatusFailed,
	}, statuses)
}

func TestIntegration_IncompleteBatchKeepsMonitoring(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	store := openFileStorage(t)
	q := batches.New(store)
	q.MustRegister(batches.NewCompletionMonitor())

	ctx := context.Background()
	res, err := batches.StartDeleteBatch(ctx, store, q, batches.DeleteRequest{
		InstanceIDs:   []string{"a", "b"},
		PartSize:      1,
		CheckInterval: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, store.CompleteBatchPart(ctx, res.Parts[0].ID, batches.PartStatusCompleted, nil))

	var executed sync.WaitGroup
	executed.Add(1)
	var once sync.Once
	q.OnJobExecuted(func(context.Context, *batches.TimerJob) {
		once.Do(executed.Done)
	})

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	w := batches.NewWorker(q, batches.PollInterval(20*time.Millisecond))
	go func() { done <- w.Start(workerCtx) }()

	executed.Wait()
	assert.Equal(t, batches.BatchStatusInProgress, batchStatus(store, res.Batch.ID))

	job, err := store.GetTimerJob(ctx, res.Job.ID)
	require.NoError(t, err)
	require.NotNil(t, job, "the monitor keeps running while a part is open")
	assert.True(t, job.Repeat.IsRecurring())

	require.NoError(t, store.CompleteBatchPart(ctx, res.Parts[1].ID, batches.PartStatusCompleted, nil))
	require.Eventually(t, func() bool {
		return batchStatus(store, res.Batch.ID) == batches.BatchStatusCompleted
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}
