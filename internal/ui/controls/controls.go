// Package controls maps front-end actions to match session operations.
package controls

import (
	"context"
	"fmt"

	"dotatimings/internal/core/session"
)

// Action is a user command.
type Action int

const (
	Start Action = iota
	TogglePause
	End
	RoshanKilled
	DireTormentorKilled
	RadiantTormentorKilled
)

// Actions lists every action in menu order.
func Actions() []Action {
	return []Action{Start, TogglePause, End, RoshanKilled, DireTormentorKilled, RadiantTormentorKilled}
}

// Session is the part of session.Session driven by the front-ends.
type Session interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	End(ctx context.Context) error
	RoshanKilled(ctx context.Context) error
	DireTormentorKilled(ctx context.Context) error
	RadiantTormentorKilled(ctx context.Context) error
}

var _ Session = (*session.Session)(nil)

// Label returns the menu text of action for the current view.
func Label(action Action, view session.View) string {
	switch action {
	case Start:
		return "Start match"
	case TogglePause:
		if view.State == session.StatePaused {
			return "Resume"
		}
		return "Pause"
	case End:
		return "End match"
	case RoshanKilled:
		return "Roshan killed"
	case DireTormentorKilled:
		return "Dire tormentor killed"
	case RadiantTormentorKilled:
		return "Radiant tormentor killed"
	default:
		return fmt.Sprintf("action %d", int(action))
	}
}

// Available reports whether action can be performed in view.
func Available(action Action, view session.View) bool {
	running := view.State == session.StateRunning
	switch action {
	case Start:
		return view.State == session.StateNotStarted
	case TogglePause, End:
		return running || view.State == session.StatePaused
	case RoshanKilled:
		return view.Roshan.CanKill
	case DireTormentorKilled:
		return running && view.DireTormentorAvailable
	case RadiantTormentorKilled:
		return running && view.RadiantTormentorAvailable
	default:
		return false
	}
}

// Perform runs action against target. TogglePause resolves to Pause or
// Resume from the view the user acted on.
func Perform(ctx context.Context, target Session, action Action, view session.View) error {
	switch action {
	case Start:
		return target.Start(ctx)
	case TogglePause:
		if view.State == session.StatePaused {
			return target.Resume(ctx)
		}
		return target.Pause(ctx)
	case End:
		return target.End(ctx)
	case RoshanKilled:
		return target.RoshanKilled(ctx)
	case DireTormentorKilled:
		return target.DireTormentorKilled(ctx)
	case RadiantTormentorKilled:
		return target.RadiantTormentorKilled(ctx)
	default:
		return fmt.Errorf("unknown action %d", int(action))
	}
}

// Status renders a one-line summary of view.
func Status(view session.View) string {
	switch view.State {
	case session.StateNotStarted:
		return "Waiting for match"
	case session.StatePaused:
		return fmt.Sprintf("%s (paused %s)", view.Clock, view.PauseClock)
	case session.StateEnded:
		return "Match ended"
	}
	phase := "day"
	if view.Night {
		phase = "night"
	}
	return fmt.Sprintf("%s %s", view.Clock, phase)
}
