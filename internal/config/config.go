// Package config resolves runtime configuration from saved settings,
// environment variables and command-line flags, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Limits for values accepted from the environment or flags.
const (
	MinTickInterval = 10 * time.Millisecond
	MaxTickInterval = 10 * time.Second
	MinStartOffset  = -600
	MaxStartOffset  = 3600
)

// ErrInvalidConfig indicates a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved runtime configuration.
type Config struct {
	Settings
	DatabasePath string `env:"DOTATIMINGS_DB_PATH"`
}

// Load layers environment variables and then flags over base.
func Load(base Settings, fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Settings: base}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "real duration of one match second")
	fs.IntVar(&cfg.StartOffset, "start-offset", cfg.StartOffset, "match second a new game starts at")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "notification language")
	fs.BoolVar(&cfg.Sound, "sound", cfg.Sound, "play a sound for every event")
	fs.BoolVar(&cfg.DesktopNotifications, "notifications", cfg.DesktopNotifications, "show desktop notifications")
	fs.BoolVar(&cfg.ReconcileOnResume, "reconcile", cfg.ReconcileOnResume, "recompute match time from wall time on resume")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "match history database path")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (cfg Config) Validate() error {
	if cfg.TickInterval < MinTickInterval || cfg.TickInterval > MaxTickInterval {
		return fmt.Errorf("%w: tick interval %s outside [%s, %s]", ErrInvalidConfig, cfg.TickInterval, MinTickInterval, MaxTickInterval)
	}
	if cfg.StartOffset < MinStartOffset || cfg.StartOffset > MaxStartOffset {
		return fmt.Errorf("%w: start offset %d outside [%d, %d]", ErrInvalidConfig, cfg.StartOffset, MinStartOffset, MaxStartOffset)
	}
	return nil
}
