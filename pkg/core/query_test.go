package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerJobQuery_Empty(t *testing.T) {
	q := NewTimerJobQuery()
	assert.Empty(t, q.Orders)
	assert.Zero(t, q.LimitValue)
	assert.False(t, q.OnlyExecutable)
}

func TestTimerJobQuery_Chaining(t *testing.T) {
	due := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	q := NewTimerJobQuery().
		HandlerType("delete-historic-case-status").
		Category("cleanup").
		ScopeID("scope-1").
		ScopeType("cmmn").
		TenantID("acme").
		DueBefore(due).
		WithException().
		Executable().
		Limit(10).
		Offset(5)

	assert.Equal(t, "delete-historic-case-status", q.HandlerTypeValue)
	assert.Equal(t, "cleanup", q.CategoryValue)
	assert.Equal(t, "scope-1", q.ScopeIDValue)
	assert.Equal(t, "cmmn", q.ScopeTypeValue)
	assert.Equal(t, "acme", q.TenantIDValue)
	assert.Equal(t, due, *q.DueBeforeValue)
	assert.True(t, q.OnlyWithException)
	assert.True(t, q.OnlyExecutable)
	assert.Equal(t, 10, q.LimitValue)
	assert.Equal(t, 5, q.OffsetValue)
}

func TestTimerJobQuery_OrderKeys(t *testing.T) {
	q := NewTimerJobQuery().
		OrderByDueDate(Asc).
		OrderByRetries(Desc).
		OrderByTenantID("sideways")

	assert.Equal(t, []Order{
		{Column: "due_date", Direction: Asc},
		{Column: "retries", Direction: Desc},
		{Column: "tenant_id", Direction: Asc},
	}, q.Orders)
}
