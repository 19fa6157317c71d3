package session

import (
	"time"

	"github.com/google/uuid"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/scheduler"
)

// State represents the match lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateEnded      State = "ended"
)

func (state State) String() string {
	return string(state)
}

// RoshanStatus tracks Roshan between kills.
type RoshanStatus string

const (
	RoshanAlive      RoshanStatus = "alive"
	RoshanKilled     RoshanStatus = "killed"
	RoshanAegisGone  RoshanStatus = "aegis_gone"
	RoshanMayRespawn RoshanStatus = "may_respawn"
)

// OccurredEvent is one entry of the match feed.
type OccurredEvent struct {
	ID          uuid.UUID
	Kind        catalog.Kind
	Title       string
	Message     string
	Icons       []string
	MatchTime   string
	MatchSecond int
	At          time.Time
}

// UpdateType defines the type of session update.
type UpdateType string

const (
	UpdateTick  UpdateType = "tick"
	UpdateEvent UpdateType = "event"
	UpdateState UpdateType = "state"
)

// Update is delivered to subscribers.
type Update struct {
	Type    UpdateType
	State   State
	Elapsed int
	Clock   string
	Event   OccurredEvent
}

// Countdown is an active or frozen timer as shown to the user.
type Countdown struct {
	Key              scheduler.Key
	Kind             catalog.Kind
	DueSecond        int
	RemainingSeconds int
	Frozen           bool
}

// RoshanView summarizes Roshan for the UI.
type RoshanView struct {
	Status  RoshanStatus
	Kills   int
	CanKill bool
}

// View is a consistent snapshot of the session.
type View struct {
	State                     State
	Elapsed                   int
	Clock                     string
	PauseClock                string
	Night                     bool
	Roshan                    RoshanView
	DireTormentorAvailable    bool
	RadiantTormentorAvailable bool
	Countdowns                []Countdown
	Feed                      []OccurredEvent
}
