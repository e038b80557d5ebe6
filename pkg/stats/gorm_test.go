package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStatsDB(t *testing.T) *gormStorage {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := &gormStorage{db: db}
	err = s.MigrateStats(context.Background())
	require.NoError(t, err)
	return s
}

func TestGormStorage_UpsertAndQuery(t *testing.T) {
	s := setupTestStatsDB(t)
	ctx := context.Background()
	ts := time.Now().Truncate(time.Minute)

	// First upsert creates a row
	err := s.UpsertCounters(ctx, "monitor", ts, Counters{Executed: 5, Retried: 2, Failed: 1, BatchesCompleted: 1})
	require.NoError(t, err)

	// Second upsert increments
	err = s.UpsertCounters(ctx, "monitor", ts, Counters{Executed: 3, Retried: 1, BatchesFailed: 2})
	require.NoError(t, err)

	// Snapshot depth
	err = s.SnapshotDepth(ctx, "monitor", ts, Depth{Scheduled: 10, Due: 3, WithException: 1})
	require.NoError(t, err)

	stats, err := s.GetStatsHistory(ctx, "", ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, "monitor", stats[0].HandlerType)
	assert.Equal(t, int64(8), stats[0].Executed)
	assert.Equal(t, int64(3), stats[0].Retried)
	assert.Equal(t, int64(1), stats[0].Failed)
	assert.Equal(t, int64(1), stats[0].BatchesCompleted)
	assert.Equal(t, int64(2), stats[0].BatchesFailed)
	assert.Equal(t, int64(10), stats[0].Scheduled)
	assert.Equal(t, int64(3), stats[0].Due)
	assert.Equal(t, int64(1), stats[0].WithException)
}

func TestGormStorage_SnapshotOverwrites(t *testing.T) {
	s := setupTestStatsDB(t)
	ctx := context.Background()
	ts := time.Now().Truncate(time.Minute)

	require.NoError(t, s.SnapshotDepth(ctx, "monitor", ts, Depth{Scheduled: 10}))
	require.NoError(t, s.SnapshotDepth(ctx, "monitor", ts, Depth{Scheduled: 4}))

	stats, err := s.GetStatsHistory(ctx, "monitor", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(4), stats[0].Scheduled)
}

func TestGormStorage_QueryByHandlerType(t *testing.T) {
	s := setupTestStatsDB(t)
	ctx := context.Background()
	ts := time.Now().Truncate(time.Minute)

	require.NoError(t, s.UpsertCounters(ctx, "monitor", ts, Counters{Executed: 1}))
	require.NoError(t, s.UpsertCounters(ctx, "cleanup", ts, Counters{Executed: 2}))

	stats, err := s.GetStatsHistory(ctx, "cleanup", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Executed)

	all, err := s.GetStatsHistory(ctx, "", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormStorage_TimeRangeAndOrder(t *testing.T) {
	s := setupTestStatsDB(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Minute)

	for i := 3; i >= 0; i-- {
		require.NoError(t, s.UpsertCounters(ctx, "monitor", now.Add(-time.Duration(i)*time.Hour), Counters{Executed: int64(i + 1)}))
	}

	stats, err := s.GetStatsHistory(ctx, "monitor", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Timestamp.Before(stats[1].Timestamp))
	assert.Equal(t, int64(3), stats[0].Executed)
	assert.Equal(t, int64(2), stats[1].Executed)
}

func TestGormStorage_Prune(t *testing.T) {
	s := setupTestStatsDB(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Minute)

	require.NoError(t, s.UpsertCounters(ctx, "monitor", now.Add(-48*time.Hour), Counters{Executed: 1}))
	require.NoError(t, s.UpsertCounters(ctx, "monitor", now, Counters{Executed: 1}))

	n, err := s.PruneStats(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.GetStatsHistory(ctx, "", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestCounters_IsZero(t *testing.T) {
	assert.True(t, Counters{}.IsZero())
	assert.False(t, Counters{Retried: 1}.IsZero())
}
