package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// errOutboxFull indicates a job was dropped because the queue was full.
var errOutboxFull = errors.New("outbox full")

type job struct {
	op string
	fn func(ctx context.Context) error
}

// outbox runs side effects in order on one worker so a slow or failing
// collaborator never blocks the run loop.
type outbox struct {
	name    string
	jobs    chan job
	timeout time.Duration
	logger  *zap.Logger
}

func newOutbox(name string, size int, timeout time.Duration, logger *zap.Logger) *outbox {
	if size <= 0 {
		size = 1
	}
	return &outbox{
		name:    name,
		jobs:    make(chan job, size),
		timeout: timeout,
		logger:  logger.With(zap.String("outbox", name)),
	}
}

// enqueue submits fn without waiting. Jobs are dropped when the queue is
// full.
func (box *outbox) enqueue(op string, fn func(ctx context.Context) error) bool {
	select {
	case box.jobs <- job{op: op, fn: fn}:
		return true
	default:
		box.logger.Warn("outbox full, dropping job", zap.String("op", op))
		return false
	}
}

// call submits fn and waits for its result.
func (box *outbox) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if !box.enqueue(op, func(jobCtx context.Context) error {
		err := fn(jobCtx)
		result <- err
		return err
	}) {
		return errOutboxFull
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (box *outbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			box.drain()
			return
		case next := <-box.jobs:
			box.execute(ctx, next)
		}
	}
}

// drain runs jobs that were queued before shutdown.
func (box *outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), box.timeout)
	defer cancel()
	for {
		select {
		case next := <-box.jobs:
			box.execute(ctx, next)
		default:
			return
		}
	}
}

func (box *outbox) execute(ctx context.Context, next job) {
	jobCtx, cancel := context.WithTimeout(ctx, box.timeout)
	defer cancel()
	if err := next.fn(jobCtx); err != nil {
		box.logger.Error("outbox job failed", zap.String("op", next.op), zap.Error(err))
	}
}
