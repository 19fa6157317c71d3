package model

import "time"

// Default engine values.
const (
	DefaultTickInterval   = time.Second
	DefaultStartOffset    = -90
	DefaultMaxCatchUp     = 7200
	DefaultDayNightCycle  = 300
	DefaultTormentorDelay = 600
)

// RoshanConfig defines the countdowns armed when Roshan is killed, in match
// seconds.
type RoshanConfig struct {
	RespawnMin    int
	RespawnMax    int
	AegisDuration int
}

// EngineConfig contains runtime settings for the match clock and the event
// schedulers.
type EngineConfig struct {
	// TickInterval is the real duration of one match second.
	TickInterval time.Duration
	// StartOffset is the elapsed value a new match starts from.
	StartOffset int
	// MaxCatchUp caps the number of seconds a single reconciliation advances.
	MaxCatchUp int
	// ReconcileOnResume recomputes elapsed time from wall time on resume.
	ReconcileOnResume bool

	Roshan           RoshanConfig
	TormentorRespawn int
	DayNightCycle    int
}

// DefaultEngineConfig returns the production timings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:      DefaultTickInterval,
		StartOffset:       DefaultStartOffset,
		MaxCatchUp:        DefaultMaxCatchUp,
		ReconcileOnResume: true,
		Roshan: RoshanConfig{
			RespawnMin:    480,
			RespawnMax:    660,
			AegisDuration: 300,
		},
		TormentorRespawn: DefaultTormentorDelay,
		DayNightCycle:    DefaultDayNightCycle,
	}
}

// Normalize replaces unset values with defaults.
func (config EngineConfig) Normalize() EngineConfig {
	defaults := DefaultEngineConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.MaxCatchUp <= 0 {
		config.MaxCatchUp = defaults.MaxCatchUp
	}
	if config.Roshan.RespawnMin <= 0 {
		config.Roshan.RespawnMin = defaults.Roshan.RespawnMin
	}
	if config.Roshan.RespawnMax < config.Roshan.RespawnMin {
		config.Roshan.RespawnMax = defaults.Roshan.RespawnMax
		if config.Roshan.RespawnMax < config.Roshan.RespawnMin {
			config.Roshan.RespawnMax = config.Roshan.RespawnMin
		}
	}
	if config.Roshan.AegisDuration <= 0 {
		config.Roshan.AegisDuration = defaults.Roshan.AegisDuration
	}
	if config.TormentorRespawn <= 0 {
		config.TormentorRespawn = defaults.TormentorRespawn
	}
	if config.DayNightCycle <= 0 {
		config.DayNightCycle = defaults.DayNightCycle
	}
	return config
}
