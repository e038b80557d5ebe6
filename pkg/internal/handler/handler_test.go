package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func funcHandler(name string, fn func(ctx context.Context, job *core.TimerJob, cfg string, stores core.Stores) error) core.JobHandler {
	return core.JobHandlerFunc{HandlerType: name, Fn: fn}
}

func noop(context.Context, *core.TimerJob, string, core.Stores) error { return nil }

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister_AndLookup(t *testing.T) {
	r := NewRegistry()
	h := funcHandler("delete-historic-case-status", noop)

	require.NoError(t, r.Register(h))

	got, ok := r.Lookup("delete-historic-case-status")
	require.True(t, ok)
	assert.Equal(t, "delete-historic-case-status", got.Type())
}

func TestLookup_Unknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegister_RejectsNil(t *testing.T) {
	r := NewRegistry()
	err := r.Register(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestRegister_RejectsInvalidType(t *testing.T) {
	r := NewRegistry()
	err := r.Register(funcHandler("bad type", noop))
	assert.ErrorIs(t, err, core.ErrInvalidHandlerType)
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(funcHandler("status", noop)))

	err := r.Register(funcHandler("status", noop))
	assert.ErrorIs(t, err, core.ErrDuplicateHandler)
}

func TestTypes_Sorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(funcHandler("zeta", noop)))
	require.NoError(t, r.Register(funcHandler("alpha", noop)))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Types())
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecute_PassesConfiguration(t *testing.T) {
	var gotCfg string
	h := funcHandler("status", func(_ context.Context, _ *core.TimerJob, cfg string, _ core.Stores) error {
		gotCfg = cfg
		return nil
	})

	err := Execute(context.Background(), h, &core.TimerJob{HandlerConfig: "batch-1"}, core.Stores{})
	require.NoError(t, err)
	assert.Equal(t, "batch-1", gotCfg)
}

func TestExecute_ReturnsHandlerError(t *testing.T) {
	want := errors.New("boom")
	h := funcHandler("status", func(context.Context, *core.TimerJob, string, core.Stores) error {
		return want
	})

	err := Execute(context.Background(), h, &core.TimerJob{}, core.Stores{})
	assert.ErrorIs(t, err, want)
}

func TestExecute_RecoversPanic(t *testing.T) {
	h := funcHandler("status", func(context.Context, *core.TimerJob, string, core.Stores) error {
		panic("kaboom")
	})

	err := Execute(context.Background(), h, &core.TimerJob{}, core.Stores{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: kaboom")
}
