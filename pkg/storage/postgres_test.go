package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

// skipIfNotPostgres skips the test when TEST_DATABASE_URL is not set.
func skipIfNotPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL-specific test")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AcquireDueTimerJobs: FOR UPDATE SKIP LOCKED
// ──────────────────────────────────────────────────────────────────────────────

func TestAcquireDueTimerJobs_PostgreSQL_ConcurrentWorkersGetDistinctJobs(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)

	const jobCount = 6
	for range jobCount {
		require.NoError(t, s.CreateTimerJob(ctx, newDueJob("monitor")))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]string)
		errs []error
		wg   sync.WaitGroup
	)
	for _, worker := range []string{"w1", "w2", "w3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := s.AcquireDueTimerJobs(ctx, worker, 2, time.Minute)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			for _, j := range jobs {
				if prev, ok := seen[j.ID]; ok {
					t.Errorf("job %s acquired by both %s and %s", j.ID, prev, worker)
				}
				seen[j.ID] = worker
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.LessOrEqual(t, len(seen), jobCount)
}

func TestAcquireDueTimerJobs_PostgreSQL_SkipsLockedJobs(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)
	require.NoError(t, s.CreateTimerJob(ctx, newDueJob("monitor")))

	got, err := s.AcquireDueTimerJobs(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got2, err := s.AcquireDueTimerJobs(ctx, "w2", 1, time.Minute)
	assert.NoError(t, err)
	assert.Empty(t, got2, "should not acquire a job that is already leased")
}

// ──────────────────────────────────────────────────────────────────────────────
// CompleteBatch: concurrent finalization
// ──────────────────────────────────────────────────────────────────────────────

func TestCompleteBatch_PostgreSQL_ConcurrentFinalizersAgree(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)
	batch := newTestBatch(t, s)

	const concurrency = 5
	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.CompleteBatch(ctx, batch.ID, core.BatchStatusCompleted)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err, "same-status finalization is idempotent")
	}
	got, err := s.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, got.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// IsSQLite detection
// ──────────────────────────────────────────────────────────────────────────────

func TestNewGormStorage_IsNotSQLite_PostgreSQL(t *testing.T) {
	skipIfNotPostgres(t)

	db := openTestDB(t)
	s := NewGormStorage(db)
	assert.False(t, s.IsSQLite(), "PostgreSQL connection should not be detected as SQLite")
}
