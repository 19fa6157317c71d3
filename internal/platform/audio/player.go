// Package audio plays alerts on the default output device.
package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Speaker plays streamers through the system speaker. The device is opened on
// first use.
type Speaker struct {
	sampleRate beep.SampleRate

	once    sync.Once
	initErr error
}

// NewSpeaker returns a player for streamers rendered at sampleRate.
func NewSpeaker(sampleRate beep.SampleRate) *Speaker {
	return &Speaker{sampleRate: sampleRate}
}

// Play queues streamer and returns immediately.
func (player *Speaker) Play(streamer beep.Streamer) error {
	player.once.Do(func() {
		if err := speaker.Init(player.sampleRate, player.sampleRate.N(time.Second/10)); err != nil {
			player.initErr = fmt.Errorf("init speaker: %w", err)
		}
	})
	if player.initErr != nil {
		return player.initErr
	}
	speaker.Play(streamer)
	return nil
}
