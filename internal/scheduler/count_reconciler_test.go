package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

type fakeRecounter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRecounter) Recount(context.Context) (domain.RecountResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return domain.RecountResult{}, f.err
	}
	old := uint64(3)
	return domain.RecountResult{OldCount: &old, NewCount: 4, TimeTaken: "1ms"}, nil
}

func TestCountReconciler_RunsOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rc := &fakeRecounter{}
	cr := NewCountReconciler(rc, logger.NewNop(), clock, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cr.Start(ctx))

	assert.Zero(t, rc.calls.Load(), "first run waits one interval")

	for want := int32(1); want <= 3; want++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Hour)
		assert.Eventually(t, func() bool { return rc.calls.Load() == want }, time.Second, 5*time.Millisecond)
	}

	cr.Stop()
}

func TestCountReconciler_FailureIsNotFatal(t *testing.T) {
	rc := &fakeRecounter{err: errors.New("redis down")}
	cr := NewCountReconciler(rc, logger.NewNop(), nil, time.Hour)

	cr.Reconcile(context.Background())
	cr.Reconcile(context.Background())
	assert.Equal(t, int32(2), rc.calls.Load())
}

func TestCountReconciler_StopsWithContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rc := &fakeRecounter{}
	cr := NewCountReconciler(rc, logger.NewNop(), clock, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, cr.Start(ctx))
	cancel()

	select {
	case <-cr.done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after context cancel")
	}
}
