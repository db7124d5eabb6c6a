package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestApplyDropsOlderSequence(t *testing.T) {
	var stale atomic.Int32
	p := New(time.Hour, func(context.Context) (int, error) { return 0, nil },
		WithOnStale[int](func() { stale.Add(1) }))
	ctx := context.Background()

	require.True(t, p.apply(ctx, 2, 20))
	require.False(t, p.apply(ctx, 1, 10))
	require.False(t, p.apply(ctx, 2, 99))

	snap, ok := p.Latest()
	require.True(t, ok)
	require.Equal(t, 20, snap.Value)
	require.Equal(t, uint64(2), snap.Seq)
	require.Equal(t, int32(2), stale.Load())

	require.True(t, p.apply(ctx, 3, 30))
}

func TestSlowStaleResponseDoesNotOverwriteFresherOne(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	var stale atomic.Int32

	p := New(time.Hour, func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			select {
			case <-release:
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			return 1, nil
		}
		return 2, nil
	},
		WithOnStale[int](func() { stale.Add(1) }),
		WithOnApply[int](func(_ context.Context, s Snapshot[int]) {
			if s.Value == 2 {
				close(release)
			}
		}),
	)

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	p.Refresh()

	require.Eventually(t, func() bool { return stale.Load() == 1 }, time.Second, 5*time.Millisecond)
	snap, ok := p.Latest()
	require.True(t, ok)
	require.Equal(t, 2, snap.Value)
	require.Equal(t, uint64(2), snap.Seq)
}

func TestStopCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	p := New(time.Hour, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return 0, ctx.Err()
	})

	p.Start(context.Background())
	<-started
	p.Stop()

	require.True(t, cancelled.Load())
	_, ok := p.Latest()
	require.False(t, ok)
}

func TestFetchErrorKeepsPreviousSnapshot(t *testing.T) {
	var calls atomic.Int32
	var failures atomic.Int32
	p := New(10*time.Millisecond, func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 7, nil
		}
		return 0, errors.New("backend down")
	}, WithOnError[int](func(error) { failures.Add(1) }))

	p.Start(context.Background())
	require.Eventually(t, func() bool { return failures.Load() >= 2 }, time.Second, 5*time.Millisecond)
	p.Stop()

	snap, ok := p.Latest()
	require.True(t, ok)
	require.Equal(t, 7, snap.Value)
}

func TestOnApplyReceivesSnapshots(t *testing.T) {
	applied := make(chan Snapshot[int], 4)
	p := New(time.Hour, func(context.Context) (int, error) { return 3, nil },
		WithOnApply[int](func(_ context.Context, s Snapshot[int]) { applied <- s }))
	p.Start(context.Background())
	defer p.Stop()

	select {
	case s := <-applied:
		require.Equal(t, 3, s.Value)
		require.Equal(t, uint64(1), s.Seq)
	case <-time.After(time.Second):
		t.Fatal("first fetch was not applied")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry[int](context.Background())
	fetch := func(context.Context) (int, error) { return 5, nil }

	reg.Start("a", New(time.Hour, fetch))
	reg.Start("b", New(time.Hour, fetch))
	reg.Start("a", New(time.Hour, fetch))
	require.Equal(t, 2, reg.Len())

	require.Eventually(t, func() bool {
		snap, ok := reg.Latest("a")
		return ok && snap.Value == 5
	}, time.Second, 5*time.Millisecond)

	reg.Stop("a")
	_, ok := reg.Latest("a")
	require.False(t, ok)
	reg.Refresh("missing")

	reg.StopAll()
	require.Zero(t, reg.Len())
}

func TestParentCancellationStopsPollers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := NewRegistry[int](ctx)
	reg.Start("a", New(5*time.Millisecond, func(context.Context) (int, error) { return 1, nil }))
	cancel()
	reg.StopAll()
}

func TestRejectedFetchStopsPollerAndLeavesRegistry(t *testing.T) {
	errRejected := errors.New("token rejected")
	var calls atomic.Int32
	reg := NewRegistry[int](context.Background())
	reg.Start("s1", New(5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errRejected
	}, WithStopOn[int](func(err error) bool { return errors.Is(err, errRejected) })))

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	require.LessOrEqual(t, calls.Load(), int32(3))
}

func TestTransientErrorsKeepPolling(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry[int](context.Background())
	reg.Start("s1", New(5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("backend down")
	}, WithStopOn[int](func(error) bool { return false })))

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, reg.Len())
	reg.StopAll()
}

func TestPollerStopsWhenOwnerIsGone(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	var calls atomic.Int32
	reg := NewRegistry[int](context.Background())
	reg.Start("s1", New(5*time.Millisecond, func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, WithAlive[int](func(context.Context) (bool, error) { return alive.Load(), nil })))

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	alive.Store(false)
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := reg.Latest("s1")
	require.False(t, ok)
}

func TestLivenessErrorsKeepPolling(t *testing.T) {
	var calls atomic.Int32
	p := New(5*time.Millisecond, func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, WithAlive[int](func(context.Context) (bool, error) { return false, errors.New("redis down") }))
	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestReplacedPollerDoesNotEvictItsSuccessor(t *testing.T) {
	reg := NewRegistry[int](context.Background())
	fetch := func(context.Context) (int, error) { return 1, nil }
	reg.Start("s1", New(time.Hour, fetch))
	reg.Start("s1", New(time.Hour, fetch))
	require.Equal(t, 1, reg.Len())
	reg.StopAll()
}
