package session

import (
	"context"
	"fmt"

	"dotatimings/internal/core/gametime"
)

// View returns a consistent snapshot of the session.
func (session *Session) View(ctx context.Context) (View, error) {
	var view View
	if err := session.loop.Do(ctx, func() { view = session.snapshot() }); err != nil {
		return View{}, fmt.Errorf("view: %w", err)
	}
	return view, nil
}

// Feed returns the occurred events of the current match in firing order.
func (session *Session) Feed(ctx context.Context) ([]OccurredEvent, error) {
	var feed []OccurredEvent
	if err := session.loop.Do(ctx, func() { feed = session.feedCopy() }); err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	return feed, nil
}

// Subscribe registers a new observer channel. Updates are dropped for
// observers whose buffer is full.
func (session *Session) Subscribe(buffer int) <-chan Update {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Update, buffer)
	session.subMu.Lock()
	if session.closed {
		close(ch)
	} else {
		session.subscribers = append(session.subscribers, ch)
	}
	session.subMu.Unlock()
	return ch
}

func (session *Session) snapshot() View {
	elapsed := session.keeper.Elapsed()
	pauseClock := gametime.FormatDuration(0)
	if session.state == StatePaused {
		pauseClock = gametime.FormatDuration(session.clock.Now().Sub(session.pauseStart))
	}
	return View{
		State:      session.state,
		Elapsed:    elapsed,
		Clock:      gametime.Format(elapsed),
		PauseClock: pauseClock,
		Night:      session.dispatcher.IsNight(),
		Roshan: RoshanView{
			Status:  session.roshanStatus,
			Kills:   session.roshanKills,
			CanKill: session.state == StateRunning && session.roshanAvailable,
		},
		DireTormentorAvailable:    session.direAvailable,
		RadiantTormentorAvailable: session.radiantAvailable,
		Countdowns:                session.countdowns(elapsed),
		Feed:                      session.feedCopy(),
	}
}

func (session *Session) countdowns(elapsed int) []Countdown {
	if session.state == StatePaused {
		out := make([]Countdown, 0, len(session.frozen))
		for _, key := range session.frozen.Keys() {
			frozen := session.frozen[key]
			out = append(out, Countdown{
				Key:              key,
				Kind:             frozen.Kind,
				DueSecond:        frozen.DueSecond,
				RemainingSeconds: frozen.RemainingSeconds(),
				Frozen:           true,
			})
		}
		return out
	}

	active := session.timers.Active()
	out := make([]Countdown, 0, len(active))
	for _, timer := range active {
		remaining := timer.DueSecond - elapsed
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, Countdown{
			Key:              timer.Key,
			Kind:             timer.Kind,
			DueSecond:        timer.DueSecond,
			RemainingSeconds: remaining,
		})
	}
	return out
}

func (session *Session) feedCopy() []OccurredEvent {
	return append([]OccurredEvent(nil), session.feed...)
}

func (session *Session) publishState() {
	elapsed := session.keeper.Elapsed()
	session.publish(Update{
		Type:    UpdateState,
		State:   session.state,
		Elapsed: elapsed,
		Clock:   gametime.Format(elapsed),
	})
}

func (session *Session) publish(update Update) {
	session.subMu.Lock()
	subscribers := append([]chan Update(nil), session.subscribers...)
	session.subMu.Unlock()
	for _, ch := range subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

func (session *Session) closeSubscribers() {
	session.subMu.Lock()
	subscribers := session.subscribers
	session.subscribers = nil
	session.closed = true
	session.subMu.Unlock()
	for _, ch := range subscribers {
		close(ch)
	}
}
