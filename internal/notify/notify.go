// Package notify delivers occurred match events to the player.
package notify

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/session"
)

// Multi fans one notification out to several notifiers.
type Multi []session.Notifier

var _ session.Notifier = Multi(nil)

// Notify calls every notifier and joins their errors.
func (multi Multi) Notify(ctx context.Context, kind catalog.Kind, message string) error {
	var errs []error
	for _, notifier := range multi {
		if notifier == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := notifier.Notify(ctx, kind, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to a zap logger.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a notifier that logs at info level.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Notify logs the event.
func (notifier *Log) Notify(_ context.Context, kind catalog.Kind, message string) error {
	notifier.logger.Info("match event",
		zap.String("kind", kind.String()),
		zap.Int("id", kind.ID()),
		zap.String("message", message),
	)
	return nil
}

// Switch forwards to a notifier while enabled.
type Switch struct {
	next    session.Notifier
	enabled atomic.Bool
}

// NewSwitch wraps next, initially enabled as given.
func NewSwitch(next session.Notifier, enabled bool) *Switch {
	notifier := &Switch{next: next}
	notifier.enabled.Store(enabled)
	return notifier
}

// SetEnabled turns forwarding on or off.
func (notifier *Switch) SetEnabled(enabled bool) {
	notifier.enabled.Store(enabled)
}

// Enabled reports whether notifications are forwarded.
func (notifier *Switch) Enabled() bool {
	return notifier.enabled.Load()
}

// Notify forwards when enabled.
func (notifier *Switch) Notify(ctx context.Context, kind catalog.Kind, message string) error {
	if notifier.next == nil || !notifier.enabled.Load() {
		return nil
	}
	return notifier.next.Notify(ctx, kind, message)
}
