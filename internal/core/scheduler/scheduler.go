// Package scheduler keeps keyed countdowns that fire an event kind after a
// number of match seconds and survive any number of pause cycles.
package scheduler

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/runloop"
)

// Key identifies a countdown slot. Arming an occupied key supersedes the
// previous countdown.
type Key string

const (
	KeyRoshanAegis             Key = "roshan.aegis"
	KeyRoshanRespawnMin        Key = "roshan.respawn_min"
	KeyRoshanRespawnMax        Key = "roshan.respawn_max"
	KeyDireTormentorRespawn    Key = "tormentor.dire.respawn"
	KeyRadiantTormentorRespawn Key = "tormentor.radiant.respawn"
)

// State is the lifecycle of a countdown.
type State string

const (
	StateArmed     State = "armed"
	StateFrozen    State = "frozen"
	StateConsumed  State = "consumed"
	StateCancelled State = "cancelled"
)

// Timer describes a countdown. Remaining is match time left when the timer
// was last armed.
type Timer struct {
	Key       Key
	Kind      catalog.Kind
	ArmedAt   time.Time
	Remaining time.Duration
	DueSecond int
	State     State
}

// FireFunc receives a timer that ran to completion.
type FireFunc func(Timer)

// Frozen is a countdown captured by FreezeAll.
type Frozen struct {
	Kind      catalog.Kind
	Remaining time.Duration
	DueSecond int
}

// RemainingSeconds rounds the remaining match time up to whole seconds.
func (frozen Frozen) RemainingSeconds() int {
	return int((frozen.Remaining + time.Second - 1) / time.Second)
}

// Snapshot maps keys to frozen countdowns.
type Snapshot map[Key]Frozen

// Keys returns the snapshot keys in sorted order.
func (snapshot Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type entry struct {
	timer Timer
	task  *runloop.Task
}

// Scheduler owns every active countdown. All methods must run on the loop.
type Scheduler struct {
	loop         *runloop.Loop
	tickInterval time.Duration
	elapsed      func() int
	fire         FireFunc
	logger       *zap.Logger
	active       map[Key]*entry
}

// New creates a Scheduler. tickInterval is the real duration of one match
// second and elapsed reports the current match second.
func New(loop *runloop.Loop, tickInterval time.Duration, elapsed func() int, fire FireFunc, logger *zap.Logger) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		loop:         loop,
		tickInterval: tickInterval,
		elapsed:      elapsed,
		fire:         fire,
		logger:       logger,
		active:       map[Key]*entry{},
	}
}

// Arm starts a countdown of seconds match seconds that fires kind.
func (scheduler *Scheduler) Arm(key Key, seconds int, kind catalog.Kind) Timer {
	return scheduler.arm(key, kind, time.Duration(seconds)*time.Second, scheduler.elapsed()+seconds)
}

func (scheduler *Scheduler) arm(key Key, kind catalog.Kind, remaining time.Duration, due int) Timer {
	scheduler.Cancel(key)
	if remaining < 0 {
		remaining = 0
	}

	current := &entry{timer: Timer{
		Key:       key,
		Kind:      kind,
		ArmedAt:   scheduler.loop.Clock().Now(),
		Remaining: remaining,
		DueSecond: due,
		State:     StateArmed,
	}}
	current.task = scheduler.loop.After(scheduler.toReal(remaining), func() {
		scheduler.complete(key, current)
	})
	scheduler.active[key] = current

	scheduler.logger.Debug("timer armed",
		zap.String("key", string(key)),
		zap.String("kind", string(kind)),
		zap.Duration("remaining", remaining),
		zap.Int("due_second", due),
	)
	return current.timer
}

func (scheduler *Scheduler) complete(key Key, current *entry) {
	if scheduler.active[key] != current {
		return
	}
	delete(scheduler.active, key)
	current.timer.State = StateConsumed
	scheduler.logger.Debug("timer fired", zap.String("key", string(key)), zap.Int("due_second", current.timer.DueSecond))
	if scheduler.fire != nil {
		scheduler.fire(current.timer)
	}
}

// Cancel drops the countdown for key without firing it.
func (scheduler *Scheduler) Cancel(key Key) {
	current, ok := scheduler.active[key]
	if !ok {
		return
	}
	current.task.Cancel()
	current.timer.State = StateCancelled
	delete(scheduler.active, key)
}

// CancelAll drops every countdown without firing.
func (scheduler *Scheduler) CancelAll() {
	for key := range scheduler.active {
		scheduler.Cancel(key)
	}
}

// FreezeAll stops every countdown and returns what each had left.
func (scheduler *Scheduler) FreezeAll() Snapshot {
	now := scheduler.loop.Clock().Now()
	snapshot := make(Snapshot, len(scheduler.active))
	for key, current := range scheduler.active {
		current.task.Cancel()
		remaining := current.timer.Remaining - scheduler.toMatch(now.Sub(current.timer.ArmedAt))
		if remaining < 0 {
			remaining = 0
		}
		current.timer.State = StateFrozen
		snapshot[key] = Frozen{
			Kind:      current.timer.Kind,
			Remaining: remaining,
			DueSecond: current.timer.DueSecond,
		}
		delete(scheduler.active, key)
	}
	return snapshot
}

// RearmAll restarts frozen countdowns with their remaining time.
func (scheduler *Scheduler) RearmAll(snapshot Snapshot) {
	for _, key := range snapshot.Keys() {
		frozen := snapshot[key]
		scheduler.arm(key, frozen.Kind, frozen.Remaining, frozen.DueSecond)
	}
}

// Pending returns the active countdown for key.
func (scheduler *Scheduler) Pending(key Key) (Timer, bool) {
	current, ok := scheduler.active[key]
	if !ok {
		return Timer{}, false
	}
	return current.timer, true
}

// Active returns every active countdown ordered by due second, then key.
func (scheduler *Scheduler) Active() []Timer {
	timers := make([]Timer, 0, len(scheduler.active))
	for _, current := range scheduler.active {
		timers = append(timers, current.timer)
	}
	sort.Slice(timers, func(i, j int) bool {
		if timers[i].DueSecond != timers[j].DueSecond {
			return timers[i].DueSecond < timers[j].DueSecond
		}
		return timers[i].Key < timers[j].Key
	})
	return timers
}

// toReal converts match time to wall time.
func (scheduler *Scheduler) toReal(match time.Duration) time.Duration {
	whole := match / time.Second
	fraction := match % time.Second
	return whole*scheduler.tickInterval + fraction*scheduler.tickInterval/time.Second
}

// toMatch converts wall time to match time.
func (scheduler *Scheduler) toMatch(real time.Duration) time.Duration {
	if real <= 0 {
		return 0
	}
	whole := real / scheduler.tickInterval
	fraction := real % scheduler.tickInterval
	return whole*time.Second + fraction*time.Second/scheduler.tickInterval
}
