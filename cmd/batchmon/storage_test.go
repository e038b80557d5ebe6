package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_SQLite(t *testing.T) {
	store, err := openStorage(context.Background(), DatabaseConfig{
		Driver:      "sqlite",
		DSN:         ":memory:",
		AutoMigrate: true,
	})
	require.NoError(t, err)
	assert.True(t, store.IsSQLite())

	n, err := store.CountTimerJobs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
