package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/clock"
	"dotatimings/internal/core/model"
	"dotatimings/internal/core/scheduler"
)

var epoch = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	t        *testing.T
	ctx      context.Context
	clock    *sleepyClock
	store    *fakeStore
	notifier *fakeNotifier
	session  *Session
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan error
}

func newHarness(t *testing.T, configure func(*model.EngineConfig)) *harness {
	t.Helper()
	config := model.DefaultEngineConfig()
	if configure != nil {
		configure(&config)
	}

	h := &harness{
		t:        t,
		ctx:      context.Background(),
		clock:    &sleepyClock{Fake: clock.NewFake(epoch)},
		store:    newFakeStore(),
		notifier: &fakeNotifier{},
		done:     make(chan error, 1),
	}
	h.session = New(config, Dependencies{
		Clock:    h.clock,
		Store:    h.store,
		Notifier: h.notifier,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.session.Run(runCtx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		require.NoError(h.t, <-h.done)
	})
}

func (h *harness) view() View {
	h.t.Helper()
	view, err := h.session.View(h.ctx)
	require.NoError(h.t, err)
	return view
}

func (h *harness) advance(d time.Duration) View {
	h.t.Helper()
	h.clock.Advance(d)
	return h.view()
}

// advanceTo runs the clock until the match second is reached.
func (h *harness) advanceTo(second int) View {
	h.t.Helper()
	current := h.view().Elapsed
	require.GreaterOrEqual(h.t, second, current)
	return h.advance(time.Duration(second-current) * time.Second)
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.session.Start(h.ctx))
}

func kindsAt(feed []OccurredEvent, second int) []catalog.Kind {
	var kinds []catalog.Kind
	for _, event := range feed {
		if event.MatchSecond == second {
			kinds = append(kinds, event.Kind)
		}
	}
	return kinds
}

func countKind(feed []OccurredEvent, kind catalog.Kind) int {
	count := 0
	for _, event := range feed {
		if event.Kind == kind {
			count++
		}
	}
	return count
}

func countdown(view View, key scheduler.Key) (Countdown, bool) {
	for _, entry := range view.Countdowns {
		if entry.Key == key {
			return entry, true
		}
	}
	return Countdown{}, false
}

func TestStartFromPreGameOffset(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	view := h.view()
	require.Equal(t, StateRunning, view.State)
	require.Equal(t, -90, view.Elapsed)
	require.Equal(t, "-01:30", view.Clock)
	require.True(t, view.Night)
	require.Len(t, view.Feed, 1)
	require.Equal(t, catalog.GameStarted, view.Feed[0].Kind)
	require.Equal(t, "-01:30", view.Feed[0].MatchTime)

	view = h.advanceTo(0)
	require.Equal(t, []catalog.Kind{catalog.BountyRune, catalog.DayStarted}, kindsAt(view.Feed, 0))
	require.False(t, view.Night)
	require.Len(t, view.Feed, 3)

	view = h.advanceTo(180)
	require.Equal(t, []catalog.Kind{catalog.WaterRune}, kindsAt(view.Feed, 120))
	require.Equal(t, []catalog.Kind{catalog.BountyRune, catalog.Lotus}, kindsAt(view.Feed, 180))
	require.Equal(t, "03:00", view.Feed[len(view.Feed)-1].MatchTime)
	require.Equal(t, "A lotus has just spawned.", view.Feed[len(view.Feed)-1].Message)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	err := h.session.Start(h.ctx)
	require.ErrorIs(t, err, model.ErrInvalidState)
	require.Len(t, h.view().Feed, 1)
}

func TestLifecycleTransitionsAreValidated(t *testing.T) {
	h := newHarness(t, nil)

	require.ErrorIs(t, h.session.Pause(h.ctx), model.ErrInvalidState)
	require.ErrorIs(t, h.session.Resume(h.ctx), model.ErrInvalidState)
	require.ErrorIs(t, h.session.End(h.ctx), model.ErrInvalidState)
	_, err := h.session.Reconcile(h.ctx)
	require.ErrorIs(t, err, model.ErrInvalidState)

	h.start()
	require.ErrorIs(t, h.session.Resume(h.ctx), model.ErrInvalidState)
	require.NoError(t, h.session.Pause(h.ctx))
	require.ErrorIs(t, h.session.Pause(h.ctx), model.ErrInvalidState)
	require.Equal(t, StatePaused, h.view().State)
}

func TestRoshanCountdownSurvivesPause(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(500)

	require.NoError(t, h.session.RoshanKilled(h.ctx))
	view := h.view()
	require.Equal(t, RoshanKilled, view.Roshan.Status)
	require.Equal(t, 1, view.Roshan.Kills)
	require.False(t, view.Roshan.CanKill)
	minTimer, ok := countdown(view, scheduler.KeyRoshanRespawnMin)
	require.True(t, ok)
	require.Equal(t, 980, minTimer.DueSecond)
	maxTimer, ok := countdown(view, scheduler.KeyRoshanRespawnMax)
	require.True(t, ok)
	require.Equal(t, 1160, maxTimer.DueSecond)
	killed := view.Feed[len(view.Feed)-1]
	require.Equal(t, catalog.RoshanKilled, killed.Kind)
	require.Equal(t, "Roshan has been killed. Respawns in 8-11.", killed.Message)

	h.advanceTo(600)
	require.NoError(t, h.session.Pause(h.ctx))
	view = h.view()
	minTimer, ok = countdown(view, scheduler.KeyRoshanRespawnMin)
	require.True(t, ok)
	require.True(t, minTimer.Frozen)
	require.Equal(t, 380, minTimer.RemainingSeconds)
	require.Eventually(t, func() bool {
		seconds, ok := h.store.remainingFor(1, string(scheduler.KeyRoshanRespawnMin))
		return ok && seconds == 380
	}, time.Second, time.Millisecond)

	view = h.advance(50 * time.Second)
	require.Equal(t, 600, view.Elapsed)
	require.Equal(t, "00:50", view.PauseClock)
	minTimer, _ = countdown(view, scheduler.KeyRoshanRespawnMin)
	require.Equal(t, 380, minTimer.RemainingSeconds)

	require.NoError(t, h.session.Resume(h.ctx))
	view = h.view()
	require.Equal(t, 600, view.Elapsed)
	require.Equal(t, "00:00", view.PauseClock)

	view = h.advance(199 * time.Second)
	require.Zero(t, countKind(view.Feed, catalog.AegisExpired))
	view = h.advance(time.Second)
	require.Equal(t, []catalog.Kind{catalog.AegisExpired}, kindsAt(view.Feed, 800))
	require.Equal(t, RoshanAegisGone, view.Roshan.Status)

	view = h.advance(179 * time.Second)
	require.Equal(t, 979, view.Elapsed)
	require.Zero(t, countKind(view.Feed, catalog.RoshanRespawnMin))
	view = h.advance(time.Second)
	require.Equal(t, 980, view.Elapsed)
	require.Equal(t, 1, countKind(view.Feed, catalog.RoshanRespawnMin))
	require.Contains(t, kindsAt(view.Feed, 980), catalog.RoshanRespawnMin)
	require.Equal(t, RoshanMayRespawn, view.Roshan.Status)
	require.True(t, view.Roshan.CanKill)

	view = h.advanceTo(1160)
	require.Contains(t, kindsAt(view.Feed, 1160), catalog.RoshanRespawnMax)
	require.Equal(t, RoshanAlive, view.Roshan.Status)
	require.Empty(t, view.Countdowns)
}

func TestPauseMidSecondKeepsTimersOnTheClock(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(500)
	require.NoError(t, h.session.RoshanKilled(h.ctx))

	view := h.advance(100*time.Second + 500*time.Millisecond)
	require.Equal(t, 600, view.Elapsed)
	require.NoError(t, h.session.Pause(h.ctx))
	minTimer, ok := countdown(h.view(), scheduler.KeyRoshanRespawnMin)
	require.True(t, ok)
	require.Equal(t, 380, minTimer.RemainingSeconds)

	h.advance(50 * time.Second)
	require.NoError(t, h.session.Resume(h.ctx))
	require.Equal(t, 600, h.view().Elapsed)

	view = h.advance(379*time.Second + 400*time.Millisecond)
	require.Equal(t, 979, view.Elapsed)
	require.Zero(t, countKind(view.Feed, catalog.RoshanRespawnMin))
	minTimer, ok = countdown(view, scheduler.KeyRoshanRespawnMin)
	require.True(t, ok)
	require.Equal(t, 1, minTimer.RemainingSeconds)

	view = h.advance(100 * time.Millisecond)
	require.Equal(t, 980, view.Elapsed)
	require.Equal(t, 1, countKind(view.Feed, catalog.RoshanRespawnMin))
	require.Contains(t, kindsAt(view.Feed, 980), catalog.RoshanRespawnMin)
	require.Contains(t, kindsAt(view.Feed, 800), catalog.AegisExpired)
}

func TestRoshanGuard(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(100)

	require.NoError(t, h.session.RoshanKilled(h.ctx))
	require.ErrorIs(t, h.session.RoshanKilled(h.ctx), ErrActionUnavailable)

	h.advanceTo(580)
	require.NoError(t, h.session.RoshanKilled(h.ctx))
	view := h.view()
	require.Equal(t, 2, view.Roshan.Kills)
	minTimer, _ := countdown(view, scheduler.KeyRoshanRespawnMin)
	require.Equal(t, 1060, minTimer.DueSecond)

	// The first kill's max countdown was superseded and never fires.
	view = h.advanceTo(800)
	require.Zero(t, countKind(view.Feed, catalog.RoshanRespawnMax))
}

func TestActionsRequireRunningMatch(t *testing.T) {
	h := newHarness(t, nil)
	require.ErrorIs(t, h.session.RoshanKilled(h.ctx), model.ErrInvalidState)

	h.start()
	require.NoError(t, h.session.Pause(h.ctx))
	require.ErrorIs(t, h.session.RoshanKilled(h.ctx), model.ErrInvalidState)
	require.ErrorIs(t, h.session.DireTormentorKilled(h.ctx), model.ErrInvalidState)
}

func TestTormentorGuards(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(600)
	require.ErrorIs(t, h.session.DireTormentorKilled(h.ctx), ErrActionUnavailable)
	require.ErrorIs(t, h.session.RadiantTormentorKilled(h.ctx), ErrActionUnavailable)

	view := h.advanceTo(1200)
	require.Contains(t, kindsAt(view.Feed, 1200), catalog.TormentorSpawned)
	require.True(t, view.DireTormentorAvailable)
	require.True(t, view.RadiantTormentorAvailable)

	require.NoError(t, h.session.DireTormentorKilled(h.ctx))
	require.ErrorIs(t, h.session.DireTormentorKilled(h.ctx), ErrActionUnavailable)
	view = h.view()
	require.False(t, view.DireTormentorAvailable)
	require.True(t, view.RadiantTormentorAvailable)
	require.Equal(t, "Dire tormentor has been killed. Respawn in 10.", view.Feed[len(view.Feed)-1].Message)

	view = h.advanceTo(1800)
	require.Contains(t, kindsAt(view.Feed, 1800), catalog.DireTormentorRespawned)
	require.True(t, view.DireTormentorAvailable)
}

func TestEndResetsEverything(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(1300)
	require.NoError(t, h.session.RoshanKilled(h.ctx))
	require.NoError(t, h.session.DireTormentorKilled(h.ctx))
	require.NoError(t, h.session.Pause(h.ctx))

	require.NoError(t, h.session.End(h.ctx))
	view := h.view()
	require.Equal(t, StateNotStarted, view.State)
	require.Equal(t, -90, view.Elapsed)
	require.Empty(t, view.Feed)
	require.Empty(t, view.Countdowns)
	require.True(t, view.Night)
	require.Equal(t, RoshanAlive, view.Roshan.Status)
	require.Zero(t, view.Roshan.Kills)
	require.False(t, view.DireTormentorAvailable)

	view = h.advance(time.Hour)
	require.Equal(t, -90, view.Elapsed)
	require.Empty(t, view.Feed)

	h.start()
	view = h.view()
	require.Equal(t, -90, view.Elapsed)
	require.Len(t, view.Feed, 1)
	require.Empty(t, view.Countdowns)

	require.Eventually(t, func() bool {
		return h.store.remainingCount() == 0 && countKinds(h.store.kinds(), catalog.GameEnded) == 1
	}, time.Second, time.Millisecond)
}

func countKinds(kinds []catalog.Kind, kind catalog.Kind) int {
	count := 0
	for _, candidate := range kinds {
		if candidate == kind {
			count++
		}
	}
	return count
}

func TestReconcileCatchesUpMissedSeconds(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(-10)

	h.clock.asleep.Store(true)
	view := h.advance(20 * time.Second)
	require.Equal(t, -10, view.Elapsed)
	h.clock.asleep.Store(false)

	advanced, err := h.session.Reconcile(h.ctx)
	require.NoError(t, err)
	require.Equal(t, 20, advanced)
	view = h.view()
	require.Equal(t, 10, view.Elapsed)
	require.Equal(t, []catalog.Kind{catalog.BountyRune, catalog.DayStarted}, kindsAt(view.Feed, 0))

	advanced, err = h.session.Reconcile(h.ctx)
	require.NoError(t, err)
	require.Zero(t, advanced)
}

func TestReconcileOnResumeAccountsForPauses(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(100)

	for cycle := 0; cycle < 3; cycle++ {
		require.NoError(t, h.session.Pause(h.ctx))
		h.advance(time.Duration(cycle+1) * 30 * time.Second)
		require.NoError(t, h.session.Resume(h.ctx))
		require.Equal(t, 100+cycle*10, h.view().Elapsed)
		h.advance(10 * time.Second)
	}

	// Ticks lost while the machine slept are recovered on the next resume.
	h.clock.asleep.Store(true)
	require.Equal(t, 130, h.advance(20*time.Second).Elapsed)
	h.clock.asleep.Store(false)
	require.NoError(t, h.session.Pause(h.ctx))
	h.advance(10 * time.Second)
	require.NoError(t, h.session.Resume(h.ctx))
	require.Equal(t, 150, h.view().Elapsed)

	h.store.mu.Lock()
	queries := h.store.queries
	h.store.mu.Unlock()
	require.Equal(t, 4, queries)
}

func TestReconcileFallsBackToMemory(t *testing.T) {
	h := newHarness(t, nil)
	h.store.failQueries = true
	h.start()
	h.advanceTo(0)

	h.clock.asleep.Store(true)
	h.advance(30 * time.Second)
	h.clock.asleep.Store(false)
	require.NoError(t, h.session.Pause(h.ctx))
	h.advance(15 * time.Second)
	require.NoError(t, h.session.Resume(h.ctx))

	require.Equal(t, 30, h.view().Elapsed)
}

func TestMemoryReconcileCountsEveryPauseOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.store.failQueries = true
	h.start()
	h.advanceTo(0)

	require.NoError(t, h.session.Pause(h.ctx))
	h.advance(20 * time.Second)
	require.NoError(t, h.session.Resume(h.ctx))
	require.Equal(t, 0, h.view().Elapsed)
	require.Equal(t, 10, h.advance(10*time.Second).Elapsed)

	h.clock.asleep.Store(true)
	h.advance(5 * time.Second)
	h.clock.asleep.Store(false)
	require.NoError(t, h.session.Pause(h.ctx))
	h.advance(40 * time.Second)
	require.NoError(t, h.session.Resume(h.ctx))
	require.Equal(t, 15, h.view().Elapsed)
}

func TestReconcileOverrunIsCapped(t *testing.T) {
	h := newHarness(t, func(config *model.EngineConfig) { config.MaxCatchUp = 5 })
	h.start()

	h.clock.asleep.Store(true)
	h.advance(time.Minute)
	h.clock.asleep.Store(false)

	advanced, err := h.session.Reconcile(h.ctx)
	require.NoError(t, err)
	require.Equal(t, 5, advanced)
	require.Equal(t, -85, h.view().Elapsed)
}

func TestReconcileDisabledOnResume(t *testing.T) {
	h := newHarness(t, func(config *model.EngineConfig) { config.ReconcileOnResume = false })
	h.start()
	h.clock.asleep.Store(true)
	h.advance(time.Minute)
	h.clock.asleep.Store(false)

	require.NoError(t, h.session.Pause(h.ctx))
	require.NoError(t, h.session.Resume(h.ctx))
	require.Equal(t, -90, h.view().Elapsed)
}

func TestNotificationsAndPersistence(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.advanceTo(0)

	require.Eventually(t, func() bool { return len(h.notifier.messages()) == 3 }, time.Second, time.Millisecond)
	sent := h.notifier.messages()
	assert.Equal(t, catalog.GameStarted, sent[0].kind)
	assert.Equal(t, "Game has started.", sent[0].message)
	assert.Equal(t, catalog.BountyRune, sent[1].kind)
	assert.Equal(t, "A bounty rune has just spawned.", sent[1].message)
	assert.Equal(t, catalog.DayStarted, sent[2].kind)

	require.Eventually(t, func() bool { return len(h.store.kinds()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []catalog.Kind{catalog.GameStarted, catalog.BountyRune, catalog.DayStarted}, h.store.kinds())
}

func TestFailingCollaboratorsNeverStopTheMatch(t *testing.T) {
	h := newHarness(t, nil)
	h.store.failWrites = true
	h.notifier.err = errStoreDown
	h.start()

	view := h.advanceTo(180)
	require.Equal(t, 180, view.Elapsed)
	require.Contains(t, kindsAt(view.Feed, 180), catalog.Lotus)
	require.Empty(t, h.store.kinds())
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, nil)
	updates := h.session.Subscribe(64)
	h.start()

	first := <-updates
	require.Equal(t, UpdateEvent, first.Type)
	require.Equal(t, catalog.GameStarted, first.Event.Kind)
	second := <-updates
	require.Equal(t, UpdateTick, second.Type)
	require.Equal(t, -90, second.Elapsed)
	third := <-updates
	require.Equal(t, UpdateState, third.Type)
	require.Equal(t, StateRunning, third.State)

	h.advance(time.Second)
	tick := <-updates
	require.Equal(t, UpdateTick, tick.Type)
	require.Equal(t, "-01:29", tick.Clock)

	h.stop()
	for range updates {
	}
	_, open := <-h.session.Subscribe(1)
	require.False(t, open)
}

func TestCustomStartOffsetEvaluatesStartSecond(t *testing.T) {
	h := newHarness(t, func(config *model.EngineConfig) { config.StartOffset = 0 })
	h.start()

	view := h.view()
	require.Equal(t, []catalog.Kind{catalog.GameStarted, catalog.BountyRune, catalog.DayStarted}, kindsAt(view.Feed, 0))
}

func TestAcceleratedTicks(t *testing.T) {
	h := newHarness(t, func(config *model.EngineConfig) { config.TickInterval = 100 * time.Millisecond })
	h.start()
	h.advance(59 * time.Second)
	require.NoError(t, h.session.RoshanKilled(h.ctx))

	view := h.advance(48 * time.Second)
	require.Equal(t, 980, view.Elapsed)
	require.Contains(t, kindsAt(view.Feed, 980), catalog.RoshanRespawnMin)
}
