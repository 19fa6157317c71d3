// Package runloop serializes every engine mutation onto one goroutine.
package runloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dotatimings/internal/core/clock"
)

var (
	// ErrStopped indicates the loop is no longer running.
	ErrStopped = errors.New("run loop stopped")
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("run loop already running")
)

// Loop is an unbounded FIFO task queue drained by a single goroutine.
type Loop struct {
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	started atomic.Bool
	done    chan struct{}
}

// New creates a Loop. Run must be called to process tasks.
func New(clk clock.Clock, logger *zap.Logger) *Loop {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		clock:  clk,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Clock returns the clock driving Every and After.
func (loop *Loop) Clock() clock.Clock {
	return loop.clock
}

// Post enqueues fn without waiting. Safe from any goroutine.
func (loop *Loop) Post(fn func()) {
	loop.mu.Lock()
	loop.queue = append(loop.queue, fn)
	loop.mu.Unlock()

	select {
	case loop.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task running on the loop.
func (loop *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	loop.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loop.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Run drains the queue until ctx is done.
func (loop *Loop) Run(ctx context.Context) error {
	if !loop.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(loop.done)

	for {
		for {
			task, ok := loop.pop()
			if !ok {
				break
			}
			loop.execute(task)
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-loop.wake:
		}
	}
}

func (loop *Loop) pop() (func(), bool) {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	if len(loop.queue) == 0 {
		return nil, false
	}
	task := loop.queue[0]
	loop.queue[0] = nil
	loop.queue = loop.queue[1:]
	return task, true
}

func (loop *Loop) execute(task func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			loop.logger.Error("run loop task panicked", zap.Any("panic", recovered))
		}
	}()
	task()
}

// Task is a cancellable repeating or delayed loop task.
type Task struct {
	cancelled atomic.Bool

	mu    sync.Mutex
	timer clock.Timer
}

// Cancel stops the task. Invocations already queued on the loop are dropped,
// so once Cancel returns on the loop goroutine fn never runs again.
func (task *Task) Cancel() {
	task.cancelled.Store(true)
	task.mu.Lock()
	timer := task.timer
	task.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// Cancelled reports whether Cancel was called.
func (task *Task) Cancelled() bool {
	return task.cancelled.Load()
}

// Every runs fn on the loop every d.
func (loop *Loop) Every(d time.Duration, fn func()) *Task {
	task := &Task{}
	guarded := loop.guard(task, fn)
	timer := loop.clock.TickFunc(d, func() { loop.Post(guarded) })
	task.mu.Lock()
	task.timer = timer
	task.mu.Unlock()
	return task
}

// EveryAfter runs fn on the loop once first has passed and every d after
// that. The ticker is started from the clock callback, so later ticks keep
// the phase set by first.
func (loop *Loop) EveryAfter(first, d time.Duration, fn func()) *Task {
	if first <= 0 {
		return loop.Every(d, fn)
	}
	task := &Task{}
	guarded := loop.guard(task, fn)
	timer := loop.clock.AfterFunc(first, func() {
		if task.cancelled.Load() {
			return
		}
		ticker := loop.clock.TickFunc(d, func() { loop.Post(guarded) })
		task.mu.Lock()
		task.timer = ticker
		task.mu.Unlock()
		if task.cancelled.Load() {
			ticker.Stop()
			return
		}
		loop.Post(guarded)
	})
	task.mu.Lock()
	if task.timer == nil {
		task.timer = timer
	}
	task.mu.Unlock()
	return task
}

// After runs fn on the loop once d has passed. A non-positive d runs fn on
// the next loop turn.
func (loop *Loop) After(d time.Duration, fn func()) *Task {
	task := &Task{}
	guarded := loop.guard(task, fn)
	if d <= 0 {
		loop.Post(guarded)
		return task
	}
	timer := loop.clock.AfterFunc(d, func() { loop.Post(guarded) })
	task.mu.Lock()
	task.timer = timer
	task.mu.Unlock()
	return task
}

func (loop *Loop) guard(task *Task, fn func()) func() {
	return func() {
		if task.cancelled.Load() {
			return
		}
		fn()
	}
}
