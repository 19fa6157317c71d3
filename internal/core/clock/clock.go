// Package clock abstracts wall time and timers so the engine can run against
// a deterministic fake in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle for a scheduled callback.
type Timer interface {
	// Stop prevents future invocations. It reports whether the timer was
	// still active.
	Stop() bool
}

// Clock provides the current time and schedules callbacks on their own
// goroutine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	TickFunc(d time.Duration, f func()) Timer
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) TickFunc(d time.Duration, f func()) Timer {
	ticker := &realTicker{
		ticker: time.NewTicker(d),
		stopCh: make(chan struct{}),
	}
	go ticker.run(f)
	return ticker
}

type realTicker struct {
	ticker *time.Ticker
	once   sync.Once
	stopCh chan struct{}
}

func (ticker *realTicker) run(f func()) {
	for {
		select {
		case <-ticker.stopCh:
			return
		case <-ticker.ticker.C:
			f()
		}
	}
}

func (ticker *realTicker) Stop() bool {
	stopped := false
	ticker.once.Do(func() {
		ticker.ticker.Stop()
		close(ticker.stopCh)
		stopped = true
	})
	return stopped
}
