package timekeeper

import (
	"errors"
	"fmt"
)

// Mode represents the current TimeKeeper mode.
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeRunning Mode = "running"
	ModePaused  Mode = "paused"
	ModeStopped Mode = "stopped"
)

func (mode Mode) String() string {
	return string(mode)
}

// AdvanceFunc observes every second the clock moves to, after the update.
type AdvanceFunc func(elapsed int)

// ErrReconciliationOverrun indicates a reconciliation was capped.
var ErrReconciliationOverrun = errors.New("reconciliation overrun")

// ReconciliationOverrunError reports how far a capped reconciliation fell
// short of the wall-time target.
type ReconciliationOverrunError struct {
	Required int
	Applied  int
}

func (err *ReconciliationOverrunError) Error() string {
	return fmt.Sprintf("reconciliation needed %d seconds, applied %d", err.Required, err.Applied)
}

// Is reports ErrReconciliationOverrun as a match.
func (err *ReconciliationOverrunError) Is(target error) bool {
	return target == ErrReconciliationOverrun
}
