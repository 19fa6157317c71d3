// Package session drives one match: it owns the clock, the dispatcher and
// the delayed timers, and serializes every change on a single run loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/clock"
	"dotatimings/internal/core/dispatch"
	"dotatimings/internal/core/gametime"
	"dotatimings/internal/core/model"
	"dotatimings/internal/core/runloop"
	"dotatimings/internal/core/scheduler"
	"dotatimings/internal/core/timekeeper"
)

const (
	defaultQueueSize    = 256
	defaultJobTimeout   = 5 * time.Second
	defaultQueryTimeout = 2 * time.Second
)

// ErrActionUnavailable indicates the action's guard is currently disabled.
var ErrActionUnavailable = errors.New("action unavailable")

// Dependencies are the collaborators of a Session. Every field is optional.
type Dependencies struct {
	Clock    clock.Clock
	Store    Store
	Notifier Notifier
	Renderer *catalog.Renderer
	Logger   *zap.Logger
	// Rules replaces the default dispatcher schedule.
	Rules []dispatch.Rule
	// QueueSize bounds the persistence and notification queues.
	QueueSize int
	// QueryTimeout bounds store queries made while reconciling.
	QueryTimeout time.Duration
}

// Session is the match state machine.
type Session struct {
	config       model.EngineConfig
	clock        clock.Clock
	loop         *runloop.Loop
	keeper       *timekeeper.TimeKeeper
	dispatcher   *dispatch.Dispatcher
	timers       *scheduler.Scheduler
	renderer     *catalog.Renderer
	notifier     Notifier
	logger       *zap.Logger
	persist      *outbox
	notify       *outbox
	recorder     *recorder
	queryTimeout time.Duration

	// Fields below are confined to the run loop.
	state            State
	matchStart       time.Time
	pauseStart       time.Time
	pausedTotal      time.Duration
	frozen           scheduler.Snapshot
	feed             []OccurredEvent
	roshanStatus     RoshanStatus
	roshanKills      int
	roshanAvailable  bool
	direAvailable    bool
	radiantAvailable bool

	subMu       sync.Mutex
	subscribers []chan Update
	closed      bool
}

// New creates a Session. Run must be called before any operation.
func New(config model.EngineConfig, deps Dependencies) *Session {
	config = config.Normalize()
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = catalog.NewRenderer(catalog.BaseLocale)
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = defaultQueueSize
	}
	if deps.QueryTimeout <= 0 {
		deps.QueryTimeout = defaultQueryTimeout
	}

	logger := deps.Logger.Named("session")
	loop := runloop.New(deps.Clock, logger)
	session := &Session{
		config:           config,
		clock:            deps.Clock,
		loop:             loop,
		dispatcher:       dispatch.New(deps.Rules, config),
		renderer:         deps.Renderer,
		notifier:         deps.Notifier,
		logger:           logger,
		persist:          newOutbox("persistence", deps.QueueSize, defaultJobTimeout, logger),
		notify:           newOutbox("notifications", deps.QueueSize, defaultJobTimeout, logger),
		queryTimeout:     deps.QueryTimeout,
		state:            StateNotStarted,
		roshanStatus:     RoshanAlive,
		roshanAvailable:  true,
		direAvailable:    false,
		radiantAvailable: false,
	}
	if deps.Store != nil {
		session.recorder = &recorder{store: deps.Store, logger: logger}
	}
	session.keeper = timekeeper.New(config, loop, logger)
	session.keeper.OnAdvance(session.onAdvance)
	session.timers = scheduler.New(loop, config.TickInterval, session.keeper.Elapsed, session.onTimer, logger)
	return session
}

// Run processes operations, ticks, timers and side effects until ctx ends.
// Subscriber channels are closed when it returns.
func (session *Session) Run(ctx context.Context) error {
	defer session.closeSubscribers()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return session.loop.Run(groupCtx)
	})
	group.Go(func() error {
		session.persist.run(groupCtx)
		return nil
	})
	group.Go(func() error {
		session.notify.run(groupCtx)
		return nil
	})
	return group.Wait()
}

// Start begins a new match at the configured start offset.
func (session *Session) Start(ctx context.Context) error {
	return session.call(ctx, "start", session.start)
}

// Pause freezes the clock and every countdown.
func (session *Session) Pause(ctx context.Context) error {
	return session.call(ctx, "pause", session.pause)
}

// Resume continues a paused match.
func (session *Session) Resume(ctx context.Context) error {
	return session.call(ctx, "resume", func() error { return session.resume(ctx) })
}

// End cancels every countdown and returns the session to not started.
func (session *Session) End(ctx context.Context) error {
	return session.call(ctx, "end", session.end)
}

// Reconcile catches the clock up with wall time, for example after the
// machine woke from sleep. It returns the number of seconds advanced.
func (session *Session) Reconcile(ctx context.Context) (int, error) {
	var advanced int
	err := session.call(ctx, "reconcile", func() error {
		if session.state != StateRunning && session.state != StatePaused {
			return model.NewInvalidState("reconcile", session.state)
		}
		advanced = session.reconcile(ctx)
		return nil
	})
	return advanced, err
}

func (session *Session) call(ctx context.Context, op string, fn func() error) error {
	var opErr error
	if err := session.loop.Do(ctx, func() { opErr = fn() }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return opErr
}

func (session *Session) start() error {
	if session.state != StateNotStarted {
		return model.NewInvalidState("start", session.state)
	}
	now := session.clock.Now()
	offset := session.config.StartOffset

	session.state = StateRunning
	session.matchStart = now
	session.pausedTotal = 0
	if session.recorder != nil {
		rec := session.recorder
		session.persist.enqueue("insert match", func(ctx context.Context) error {
			return rec.insertMatch(ctx, now)
		})
	}
	session.emit(catalog.GameStarted, offset)
	if err := session.keeper.Start(offset); err != nil {
		session.state = StateNotStarted
		return err
	}

	session.logger.Info("match started", zap.Int("offset", offset), zap.Duration("tick_interval", session.config.TickInterval))
	session.publishState()
	return nil
}

func (session *Session) pause() error {
	if session.state != StateRunning {
		return model.NewInvalidState("pause", session.state)
	}
	session.emit(catalog.GamePaused, session.keeper.Elapsed())
	if err := session.keeper.Pause(); err != nil {
		return err
	}

	session.frozen = session.timers.FreezeAll()
	if session.recorder != nil {
		rec := session.recorder
		for _, key := range session.frozen.Keys() {
			frozen := session.frozen[key]
			key := string(key)
			session.persist.enqueue("update remaining time", func(ctx context.Context) error {
				return rec.updateRemaining(ctx, key, frozen.Kind, frozen.RemainingSeconds())
			})
		}
	}
	session.pauseStart = session.clock.Now()
	session.state = StatePaused

	session.logger.Info("match paused", zap.Int("elapsed", session.keeper.Elapsed()), zap.Int("frozen_timers", len(session.frozen)))
	session.publishState()
	return nil
}

func (session *Session) resume(ctx context.Context) error {
	if session.state != StatePaused {
		return model.NewInvalidState("resume", session.state)
	}
	// The pause is still open here and counted once by both input sources.
	if session.config.ReconcileOnResume {
		session.reconcile(ctx)
	}
	session.pausedTotal += session.clock.Now().Sub(session.pauseStart)
	if err := session.keeper.Resume(); err != nil {
		return err
	}
	session.timers.RearmAll(session.frozen)
	session.frozen = nil
	session.pauseStart = time.Time{}
	session.state = StateRunning
	session.emit(catalog.GameResumed, session.keeper.Elapsed())

	session.logger.Info("match resumed", zap.Int("elapsed", session.keeper.Elapsed()), zap.Duration("paused_total", session.pausedTotal))
	session.publishState()
	return nil
}

func (session *Session) end() error {
	if session.state != StateRunning && session.state != StatePaused {
		return model.NewInvalidState("end", session.state)
	}
	session.timers.CancelAll()
	if err := session.keeper.Stop(); err != nil {
		return err
	}
	elapsed := session.keeper.Elapsed()
	session.emit(catalog.GameEnded, elapsed)
	if session.recorder != nil {
		rec := session.recorder
		session.persist.enqueue("clear remaining times", rec.clearRemaining)
	}
	session.state = StateEnded
	session.publishState()

	if err := session.keeper.Reset(); err != nil {
		return err
	}
	session.dispatcher.Reset()
	session.feed = nil
	session.frozen = nil
	session.pausedTotal = 0
	session.matchStart = time.Time{}
	session.pauseStart = time.Time{}
	session.roshanStatus = RoshanAlive
	session.roshanKills = 0
	session.roshanAvailable = true
	session.direAvailable = false
	session.radiantAvailable = false
	session.state = StateNotStarted

	session.logger.Info("match ended", zap.Int("elapsed", elapsed))
	session.publishState()
	return nil
}

// reconcile advances the clock to wall time. Inputs come from the store when
// possible and from in-memory bookkeeping otherwise.
func (session *Session) reconcile(ctx context.Context) int {
	now := session.clock.Now()
	start, paused := session.memoryReconcileInputs(now)
	if session.recorder != nil {
		storedStart, storedPaused, err := session.storedReconcileInputs(ctx, now)
		if err != nil {
			session.logger.Warn("reconcile from store failed, using memory", zap.Error(err))
		} else {
			start, paused = storedStart, storedPaused
		}
	}

	advanced, err := session.keeper.Reconcile(start, paused, now)
	var overrun *timekeeper.ReconciliationOverrunError
	switch {
	case errors.As(err, &overrun):
		session.logger.Warn("reconciliation capped",
			zap.Int("required", overrun.Required),
			zap.Int("applied", overrun.Applied),
		)
	case err != nil:
		session.logger.Error("reconcile failed", zap.Error(err))
	}
	return advanced
}

func (session *Session) memoryReconcileInputs(now time.Time) (time.Time, time.Duration) {
	paused := session.pausedTotal
	if session.state == StatePaused {
		paused += now.Sub(session.pauseStart)
	}
	return session.matchStart, paused
}

func (session *Session) storedReconcileInputs(ctx context.Context, now time.Time) (time.Time, time.Duration, error) {
	queryCtx, cancel := context.WithTimeout(ctx, session.queryTimeout)
	defer cancel()

	type inputs struct {
		start  time.Time
		paused time.Duration
	}
	// Buffered so a query finishing after the timeout never blocks the worker.
	results := make(chan inputs, 1)
	rec := session.recorder
	err := session.persist.call(queryCtx, "reconcile inputs", func(jobCtx context.Context) error {
		start, paused, err := rec.reconcileInputs(jobCtx, now)
		if err != nil {
			return err
		}
		results <- inputs{start: start, paused: paused}
		return nil
	})
	if err != nil {
		return time.Time{}, 0, err
	}
	got := <-results
	return got.start, got.paused, nil
}

func (session *Session) onAdvance(elapsed int) {
	session.publish(Update{
		Type:    UpdateTick,
		State:   session.state,
		Elapsed: elapsed,
		Clock:   gametime.Format(elapsed),
	})
	for _, kind := range session.dispatcher.Evaluate(elapsed) {
		if kind == catalog.TormentorSpawned {
			session.direAvailable = true
			session.radiantAvailable = true
		}
		session.emit(kind, elapsed)
	}
}

// emit appends an occurred event to the feed, publishes it and queues its
// notification and persistence.
func (session *Session) emit(kind catalog.Kind, second int, args ...any) OccurredEvent {
	entry, _ := catalog.Lookup(kind)
	event := OccurredEvent{
		ID:          uuid.New(),
		Kind:        kind,
		Title:       session.renderer.Title(kind),
		Message:     session.renderer.Message(kind, args...),
		Icons:       entry.Icons,
		MatchTime:   gametime.Format(second),
		MatchSecond: second,
		At:          session.clock.Now(),
	}
	session.feed = append(session.feed, event)
	session.publish(Update{
		Type:    UpdateEvent,
		State:   session.state,
		Elapsed: session.keeper.Elapsed(),
		Clock:   session.keeper.Display(),
		Event:   event,
	})

	if session.notifier != nil {
		notifier := session.notifier
		session.notify.enqueue("notify "+string(kind), func(ctx context.Context) error {
			return notifier.Notify(ctx, kind, event.Message)
		})
	}
	if session.recorder != nil {
		rec := session.recorder
		session.persist.enqueue("insert occurrence", func(ctx context.Context) error {
			return rec.insertOccurrence(ctx, kind, event.At, second)
		})
	}
	session.logger.Debug("event occurred", zap.String("kind", string(kind)), zap.String("match_time", event.MatchTime))
	return event
}
