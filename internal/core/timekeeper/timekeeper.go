package timekeeper

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"dotatimings/internal/core/gametime"
	"dotatimings/internal/core/model"
	"dotatimings/internal/core/runloop"
)

// TimeKeeper is the match clock state machine. Mutating methods must run on
// the loop; accessors are safe from any goroutine.
type TimeKeeper struct {
	mu        sync.Mutex
	config    model.EngineConfig
	loop      *runloop.Loop
	logger    *zap.Logger
	mode      Mode
	offset    int
	elapsed   int
	ticks     uint64
	task      *runloop.Task
	anchor    time.Time
	phase     time.Duration
	listeners []AdvanceFunc
}

// New creates an idle TimeKeeper positioned at the configured start offset.
func New(config model.EngineConfig, loop *runloop.Loop, logger *zap.Logger) *TimeKeeper {
	config = config.Normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeKeeper{
		config:  config,
		loop:    loop,
		logger:  logger,
		mode:    ModeIdle,
		offset:  config.StartOffset,
		elapsed: config.StartOffset,
	}
}

// OnAdvance registers an observer.
func (keeper *TimeKeeper) OnAdvance(fn AdvanceFunc) {
	keeper.mu.Lock()
	keeper.listeners = append(keeper.listeners, fn)
	keeper.mu.Unlock()
}

// Start begins ticking from offset. Observers see the offset second once.
func (keeper *TimeKeeper) Start(offset int) error {
	keeper.mu.Lock()
	if keeper.mode != ModeIdle {
		mode := keeper.mode
		keeper.mu.Unlock()
		return model.NewInvalidState("start clock", mode)
	}
	keeper.mode = ModeRunning
	keeper.offset = offset
	keeper.elapsed = offset
	keeper.ticks = 0
	keeper.anchor = keeper.loop.Clock().Now()
	keeper.phase = 0
	keeper.mu.Unlock()

	keeper.logger.Debug("match clock started", zap.Int("offset", offset))
	keeper.notify(offset)
	keeper.startTicking(0)
	return nil
}

// Tick advances one second. Ticks outside running mode are ignored.
func (keeper *TimeKeeper) Tick() {
	keeper.mu.Lock()
	if keeper.mode != ModeRunning {
		keeper.mu.Unlock()
		return
	}
	keeper.elapsed++
	keeper.ticks++
	elapsed := keeper.elapsed
	keeper.mu.Unlock()

	keeper.notify(elapsed)
}

// Pause freezes the clock and cancels the tick task. The part of the current
// second that already ran is kept for Resume.
func (keeper *TimeKeeper) Pause() error {
	keeper.mu.Lock()
	if keeper.mode != ModeRunning {
		mode := keeper.mode
		keeper.mu.Unlock()
		return model.NewInvalidState("pause clock", mode)
	}
	keeper.mode = ModePaused
	keeper.phase = keeper.loop.Clock().Now().Sub(keeper.anchor) % keeper.config.TickInterval
	if keeper.phase < 0 {
		keeper.phase = 0
	}
	keeper.mu.Unlock()

	keeper.stopTicking()
	return nil
}

// Resume restarts ticking from the frozen value. The first tick comes after
// the rest of the second that was interrupted by Pause.
func (keeper *TimeKeeper) Resume() error {
	keeper.mu.Lock()
	if keeper.mode != ModePaused {
		mode := keeper.mode
		keeper.mu.Unlock()
		return model.NewInvalidState("resume clock", mode)
	}
	keeper.mode = ModeRunning
	phase := keeper.phase
	keeper.anchor = keeper.loop.Clock().Now().Add(-phase)
	keeper.phase = 0
	keeper.mu.Unlock()

	keeper.startTicking(keeper.config.TickInterval - phase)
	return nil
}

// Stop ends the match. Elapsed stays readable until Reset.
func (keeper *TimeKeeper) Stop() error {
	keeper.mu.Lock()
	if keeper.mode != ModeRunning && keeper.mode != ModePaused {
		mode := keeper.mode
		keeper.mu.Unlock()
		return model.NewInvalidState("stop clock", mode)
	}
	keeper.mode = ModeStopped
	keeper.mu.Unlock()

	keeper.stopTicking()
	return nil
}

// Reset returns a stopped clock to idle at the configured start offset.
func (keeper *TimeKeeper) Reset() error {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.mode != ModeStopped {
		return model.NewInvalidState("reset clock", keeper.mode)
	}
	keeper.mode = ModeIdle
	keeper.offset = keeper.config.StartOffset
	keeper.elapsed = keeper.config.StartOffset
	keeper.ticks = 0
	keeper.phase = 0
	return nil
}

// Reconcile advances the clock to the second implied by wall time since
// matchStart minus pausedTotal, one second at a time so observers see every
// intermediate second. It never moves the clock backwards, and at most
// MaxCatchUp seconds are applied per call.
//
// Repeating a call with the same arguments is a no-op once the target is
// reached. A capped call returns ReconciliationOverrunError and leaves the
// clock short of the target, so repeating it applies up to MaxCatchUp more.
func (keeper *TimeKeeper) Reconcile(matchStart time.Time, pausedTotal time.Duration, now time.Time) (int, error) {
	keeper.mu.Lock()
	if keeper.mode != ModeRunning && keeper.mode != ModePaused {
		mode := keeper.mode
		keeper.mu.Unlock()
		return 0, model.NewInvalidState("reconcile clock", mode)
	}
	active := now.Sub(matchStart) - pausedTotal
	if active < 0 {
		active = 0
	}
	target := keeper.offset + int(active/keeper.config.TickInterval)
	required := target - keeper.elapsed
	keeper.mu.Unlock()

	if required <= 0 {
		return 0, nil
	}
	applied := required
	if applied > keeper.config.MaxCatchUp {
		applied = keeper.config.MaxCatchUp
	}

	for i := 0; i < applied; i++ {
		keeper.mu.Lock()
		keeper.elapsed++
		keeper.ticks++
		elapsed := keeper.elapsed
		keeper.mu.Unlock()
		keeper.notify(elapsed)
	}

	keeper.logger.Info("match clock reconciled",
		zap.Int("required", required),
		zap.Int("applied", applied),
		zap.Int("elapsed", keeper.Elapsed()),
	)
	if applied < required {
		return applied, &ReconciliationOverrunError{Required: required, Applied: applied}
	}
	return applied, nil
}

// Elapsed returns the signed match second.
func (keeper *TimeKeeper) Elapsed() int {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.elapsed
}

// Mode returns the current mode.
func (keeper *TimeKeeper) Mode() Mode {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.mode
}

// TickCount returns the number of seconds advanced since Start.
func (keeper *TimeKeeper) TickCount() uint64 {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.ticks
}

// Display returns the elapsed time formatted as match time.
func (keeper *TimeKeeper) Display() string {
	return gametime.Format(keeper.Elapsed())
}

// TickInterval returns the real duration of one match second.
func (keeper *TimeKeeper) TickInterval() time.Duration {
	return keeper.config.TickInterval
}

// startTicking ticks after first and then every interval. A first outside
// (0, interval) means a whole interval.
func (keeper *TimeKeeper) startTicking(first time.Duration) {
	interval := keeper.config.TickInterval
	if first <= 0 || first >= interval {
		keeper.setTask(keeper.loop.Every(interval, keeper.Tick))
		return
	}
	keeper.setTask(keeper.loop.EveryAfter(first, interval, keeper.Tick))
}

func (keeper *TimeKeeper) setTask(task *runloop.Task) {
	keeper.mu.Lock()
	keeper.task = task
	keeper.mu.Unlock()
}

func (keeper *TimeKeeper) stopTicking() {
	keeper.mu.Lock()
	task := keeper.task
	keeper.task = nil
	keeper.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

func (keeper *TimeKeeper) notify(elapsed int) {
	keeper.mu.Lock()
	listeners := append([]AdvanceFunc(nil), keeper.listeners...)
	keeper.mu.Unlock()
	for _, listener := range listeners {
		listener(elapsed)
	}
}
