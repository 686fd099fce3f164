package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_StartAndStop(t *testing.T) {
	lc := NewLifecycle()

	var calls []string
	lc.OnStart(func(context.Context) error { calls = append(calls, "start1"); return nil })
	lc.OnStart(func(context.Context) error { calls = append(calls, "start2"); return nil })
	lc.OnStop(func(context.Context) error { calls = append(calls, "stop1"); return nil })
	lc.OnStop(func(context.Context) error { calls = append(calls, "stop2"); return nil })

	require.NoError(t, lc.Start(context.Background()))
	assert.True(t, lc.IsStarted())

	require.NoError(t, lc.Stop(context.Background()))
	assert.False(t, lc.IsStarted())
	assert.Equal(t, []string{"start1", "start2", "stop2", "stop1"}, calls)
}

func TestLifecycle_StartTwice(t *testing.T) {
	lc := NewLifecycle()
	require.NoError(t, lc.Start(context.Background()))
	assert.Error(t, lc.Start(context.Background()))
}

func TestLifecycle_StartFailureStillStopsEverything(t *testing.T) {
	lc := NewLifecycle()

	stopped := 0
	lc.OnStart(func(context.Context) error { return errors.New("boom") })
	lc.OnStop(func(context.Context) error { stopped++; return nil })
	lc.OnStop(func(context.Context) error { stopped++; return nil })

	err := lc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start hook 0 failed")

	require.NoError(t, lc.Stop(context.Background()))
	assert.Equal(t, 2, stopped)
}

func TestLifecycle_StopRunsOnce(t *testing.T) {
	lc := NewLifecycle()
	stopped := 0
	lc.OnStop(func(context.Context) error { stopped++; return nil })

	require.NoError(t, lc.Stop(context.Background()))
	require.NoError(t, lc.Stop(context.Background()))
	assert.Equal(t, 1, stopped)
}

func TestLifecycle_StopJoinsErrors(t *testing.T) {
	lc := NewLifecycle()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	lc.OnStop(func(context.Context) error { return errA })
	lc.OnStop(func(context.Context) error { return errB })

	err := lc.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestLifecycle_RegisterCloser(t *testing.T) {
	lc := NewLifecycle()
	closed := false
	lc.RegisterCloser(closerFunc(func() error { closed = true; return nil }))

	require.NoError(t, lc.Stop(context.Background()))
	assert.True(t, closed)
}
