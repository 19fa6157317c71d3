package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"

	"dotatimings/internal/core/catalog"
)

// SampleRate is the rate every alert is rendered at.
const SampleRate = beep.SampleRate(44100)

const (
	noteLength = 90 * time.Millisecond
	gapLength  = 40 * time.Millisecond
	alertGain  = -1.5
)

// Player plays a finite streamer without blocking.
type Player interface {
	Play(beep.Streamer) error
}

// Sound plays a short tone pattern per event category.
type Sound struct {
	player Player
}

// NewSound returns a sound notifier backed by player.
func NewSound(player Player) *Sound {
	return &Sound{player: player}
}

// Notify plays the alert for kind.
func (notifier *Sound) Notify(_ context.Context, kind catalog.Kind, _ string) error {
	if notifier.player == nil {
		return nil
	}
	alert, err := Alert(kind)
	if err != nil {
		return err
	}
	return notifier.player.Play(alert)
}

// Alert renders the tone pattern for kind.
func Alert(kind catalog.Kind) (beep.Streamer, error) {
	entry, ok := catalog.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("alert: unknown kind %q", kind)
	}

	var streamers []beep.Streamer
	for i, frequency := range pattern(entry.Category) {
		if i > 0 {
			streamers = append(streamers, generators.Silence(SampleRate.N(gapLength)))
		}
		tone, err := generators.SineTone(SampleRate, frequency)
		if err != nil {
			return nil, fmt.Errorf("alert tone: %w", err)
		}
		streamers = append(streamers, beep.Take(SampleRate.N(noteLength), tone))
	}

	return &effects.Volume{Streamer: beep.Seq(streamers...), Base: 2, Volume: alertGain}, nil
}

// AlertSamples is the length of the alert for kind in samples.
func AlertSamples(kind catalog.Kind) int {
	entry, ok := catalog.Lookup(kind)
	if !ok {
		return 0
	}
	notes := len(pattern(entry.Category))
	if notes == 0 {
		return 0
	}
	return notes*SampleRate.N(noteLength) + (notes-1)*SampleRate.N(gapLength)
}

func pattern(category catalog.Category) []float64 {
	switch category {
	case catalog.CategoryLifecycle:
		return []float64{660}
	case catalog.CategoryPeriodic:
		return []float64{880, 1320}
	case catalog.CategoryTriggered:
		return []float64{440, 554, 659}
	default:
		return []float64{660}
	}
}
