package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Callbacks run synchronously inside
// Advance, in due order; callbacks due at the same instant run in the order
// they were scheduled.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*fakeTimer
}

type fakeTimer struct {
	fake   *Fake
	when   time.Time
	seq    uint64
	period time.Duration
	fn     func()
	active bool
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// AfterFunc schedules f once after d.
func (fake *Fake) AfterFunc(d time.Duration, f func()) Timer {
	return fake.schedule(d, 0, f)
}

// TickFunc schedules f every d. Non-positive periods are treated as one
// nanosecond.
func (fake *Fake) TickFunc(d time.Duration, f func()) Timer {
	if d <= 0 {
		d = time.Nanosecond
	}
	return fake.schedule(d, d, f)
}

func (fake *Fake) schedule(d, period time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.seq++
	timer := &fakeTimer{
		fake:   fake,
		when:   fake.now.Add(d),
		seq:    fake.seq,
		period: period,
		fn:     f,
		active: true,
	}
	fake.pending = append(fake.pending, timer)
	return timer
}

// Advance moves time forward by d and runs every callback that comes due.
func (fake *Fake) Advance(d time.Duration) {
	fake.mu.Lock()
	target := fake.now.Add(d)
	fake.mu.Unlock()

	for {
		fake.mu.Lock()
		next := fake.nextDueLocked(target)
		if next == nil {
			fake.now = target
			fake.mu.Unlock()
			return
		}
		fake.now = next.when
		if next.period > 0 {
			fake.seq++
			next.when = next.when.Add(next.period)
			next.seq = fake.seq
		} else {
			next.active = false
			fake.removeLocked(next)
		}
		fn := next.fn
		fake.mu.Unlock()

		fn()
	}
}

// Pending reports the number of active timers.
func (fake *Fake) Pending() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.pending)
}

func (fake *Fake) nextDueLocked(target time.Time) *fakeTimer {
	if len(fake.pending) == 0 {
		return nil
	}
	sort.SliceStable(fake.pending, func(i, j int) bool {
		a, b := fake.pending[i], fake.pending[j]
		if !a.when.Equal(b.when) {
			return a.when.Before(b.when)
		}
		return a.seq < b.seq
	})
	first := fake.pending[0]
	if first.when.After(target) {
		return nil
	}
	return first
}

func (fake *Fake) removeLocked(timer *fakeTimer) {
	for i, candidate := range fake.pending {
		if candidate == timer {
			fake.pending = append(fake.pending[:i], fake.pending[i+1:]...)
			return
		}
	}
}

func (timer *fakeTimer) Stop() bool {
	timer.fake.mu.Lock()
	defer timer.fake.mu.Unlock()
	if !timer.active {
		return false
	}
	timer.active = false
	timer.fake.removeLocked(timer)
	return true
}
