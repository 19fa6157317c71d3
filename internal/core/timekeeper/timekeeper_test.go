package timekeeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dotatimings/internal/core/clock"
	"dotatimings/internal/core/model"
	"dotatimings/internal/core/runloop"
)

var epoch = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	fake   *clock.Fake
	loop   *runloop.Loop
	keeper *TimeKeeper
	seen   []int
}

func newHarness(t *testing.T, config model.EngineConfig) *harness {
	t.Helper()
	fake := clock.NewFake(epoch)
	loop := runloop.New(fake, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := &harness{t: t, fake: fake, loop: loop}
	h.keeper = New(config, loop, nil)
	h.keeper.OnAdvance(func(elapsed int) { h.seen = append(h.seen, elapsed) })
	return h
}

func (h *harness) do(fn func()) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Do(context.Background(), fn))
}

func (h *harness) call(fn func() error) error {
	h.t.Helper()
	var err error
	h.do(func() { err = fn() })
	return err
}

func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.fake.Advance(d)
	h.do(func() {})
}

func (h *harness) observed() []int {
	var out []int
	h.do(func() { out = append(out, h.seen...) })
	return out
}

func TestStartNotifiesOffsetOnce(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())

	require.NoError(t, h.call(func() error { return h.keeper.Start(-90) }))
	require.Equal(t, []int{-90}, h.observed())
	require.Equal(t, ModeRunning, h.keeper.Mode())
	require.Equal(t, "-01:30", h.keeper.Display())

	h.advance(3 * time.Second)
	require.Equal(t, []int{-90, -89, -88, -87}, h.observed())
	require.Equal(t, uint64(3), h.keeper.TickCount())
}

func TestStartTwiceIsRejected(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))

	err := h.call(func() error { return h.keeper.Start(0) })
	require.ErrorIs(t, err, model.ErrInvalidState)
	require.Equal(t, 0, h.keeper.Elapsed())
}

func TestPauseFreezesAndResumeContinues(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))
	h.advance(5 * time.Second)

	require.NoError(t, h.call(h.keeper.Pause))
	require.Equal(t, ModePaused, h.keeper.Mode())
	h.advance(time.Minute)
	require.Equal(t, 5, h.keeper.Elapsed())

	require.ErrorIs(t, h.call(h.keeper.Pause), model.ErrInvalidState)

	require.NoError(t, h.call(h.keeper.Resume))
	require.Equal(t, 5, h.keeper.Elapsed())
	h.advance(2 * time.Second)
	require.Equal(t, 7, h.keeper.Elapsed())
	require.ErrorIs(t, h.call(h.keeper.Resume), model.ErrInvalidState)
}

func TestResumeKeepsTickPhase(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))
	h.advance(2*time.Second + 600*time.Millisecond)
	require.Equal(t, 2, h.keeper.Elapsed())

	require.NoError(t, h.call(h.keeper.Pause))
	h.advance(30*time.Second + 100*time.Millisecond)
	require.NoError(t, h.call(h.keeper.Resume))

	h.advance(399 * time.Millisecond)
	require.Equal(t, 2, h.keeper.Elapsed())
	h.advance(time.Millisecond)
	require.Equal(t, 3, h.keeper.Elapsed())
	h.advance(time.Second)
	require.Equal(t, 4, h.keeper.Elapsed())

	// Pausing again mid-second keeps that phase as well.
	h.advance(200 * time.Millisecond)
	require.NoError(t, h.call(h.keeper.Pause))
	h.advance(time.Minute)
	require.NoError(t, h.call(h.keeper.Resume))
	h.advance(799 * time.Millisecond)
	require.Equal(t, 4, h.keeper.Elapsed())
	h.advance(time.Millisecond)
	require.Equal(t, 5, h.keeper.Elapsed())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, h.observed())
}

func TestTickOutsideRunningIsIgnored(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	h.do(h.keeper.Tick)
	require.Equal(t, -90, h.keeper.Elapsed())
	require.Empty(t, h.observed())
}

func TestAcceleratedTickInterval(t *testing.T) {
	config := model.DefaultEngineConfig()
	config.TickInterval = 100 * time.Millisecond
	h := newHarness(t, config)

	require.NoError(t, h.call(func() error { return h.keeper.Start(-90) }))
	h.advance(time.Second)
	require.Equal(t, -80, h.keeper.Elapsed())
}

func TestStopAndReset(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.ErrorIs(t, h.call(h.keeper.Stop), model.ErrInvalidState)
	require.NoError(t, h.call(func() error { return h.keeper.Start(-90) }))
	h.advance(10 * time.Second)

	require.ErrorIs(t, h.call(h.keeper.Reset), model.ErrInvalidState)
	require.NoError(t, h.call(h.keeper.Stop))
	h.advance(10 * time.Second)
	require.Equal(t, -80, h.keeper.Elapsed())

	require.NoError(t, h.call(h.keeper.Reset))
	require.Equal(t, ModeIdle, h.keeper.Mode())
	require.Equal(t, -90, h.keeper.Elapsed())
	require.Zero(t, h.keeper.TickCount())
}

func TestReconcileAdvancesEachSecondAndIsIdempotent(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.NoError(t, h.call(func() error { return h.keeper.Start(-90) }))
	require.NoError(t, h.call(h.keeper.Pause))

	start := epoch
	now := epoch.Add(100 * time.Second)
	var applied int
	require.NoError(t, h.call(func() error {
		var err error
		applied, err = h.keeper.Reconcile(start, 40*time.Second, now)
		return err
	}))
	require.Equal(t, 60, applied)
	require.Equal(t, -30, h.keeper.Elapsed())

	observed := h.observed()
	require.Len(t, observed, 61)
	require.Equal(t, -89, observed[1])
	require.Equal(t, -30, observed[60])

	require.NoError(t, h.call(func() error {
		var err error
		applied, err = h.keeper.Reconcile(start, 40*time.Second, now)
		return err
	}))
	require.Zero(t, applied)
	require.Equal(t, -30, h.keeper.Elapsed())
}

func TestReconcileNeverMovesBackwards(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))
	h.advance(30 * time.Second)

	var applied int
	require.NoError(t, h.call(func() error {
		var err error
		applied, err = h.keeper.Reconcile(epoch, time.Hour, epoch.Add(10*time.Second))
		return err
	}))
	require.Zero(t, applied)
	require.Equal(t, 30, h.keeper.Elapsed())
}

func TestReconcileOverrunIsCapped(t *testing.T) {
	config := model.DefaultEngineConfig()
	config.MaxCatchUp = 50
	h := newHarness(t, config)
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))

	var applied int
	err := h.call(func() error {
		var err error
		applied, err = h.keeper.Reconcile(epoch, 0, epoch.Add(200*time.Second))
		return err
	})
	require.ErrorIs(t, err, ErrReconciliationOverrun)
	var overrun *ReconciliationOverrunError
	require.True(t, errors.As(err, &overrun))
	require.Equal(t, 200, overrun.Required)
	require.Equal(t, 50, overrun.Applied)
	require.Equal(t, 50, applied)
	require.Equal(t, 50, h.keeper.Elapsed())
}

func TestRepeatedCappedReconcileKeepsCatchingUp(t *testing.T) {
	config := model.DefaultEngineConfig()
	config.MaxCatchUp = 50
	h := newHarness(t, config)
	require.NoError(t, h.call(func() error { return h.keeper.Start(0) }))

	reconcile := func() (int, error) {
		var applied int
		err := h.call(func() error {
			var err error
			applied, err = h.keeper.Reconcile(epoch, 0, epoch.Add(120*time.Second))
			return err
		})
		return applied, err
	}

	applied, err := reconcile()
	require.ErrorIs(t, err, ErrReconciliationOverrun)
	require.Equal(t, 50, applied)
	applied, err = reconcile()
	require.ErrorIs(t, err, ErrReconciliationOverrun)
	require.Equal(t, 50, applied)
	applied, err = reconcile()
	require.NoError(t, err)
	require.Equal(t, 20, applied)
	require.Equal(t, 120, h.keeper.Elapsed())

	applied, err = reconcile()
	require.NoError(t, err)
	require.Zero(t, applied)
}

func TestReconcileRequiresActiveMatch(t *testing.T) {
	h := newHarness(t, model.DefaultEngineConfig())
	err := h.call(func() error {
		_, err := h.keeper.Reconcile(epoch, 0, epoch.Add(time.Minute))
		return err
	})
	require.ErrorIs(t, err, model.ErrInvalidState)
}
