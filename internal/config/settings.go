package config

import (
	"time"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	TickInterval         time.Duration `env:"DOTATIMINGS_TICK_INTERVAL"`
	StartOffset          int           `env:"DOTATIMINGS_START_OFFSET"`
	Locale               string        `env:"DOTATIMINGS_LOCALE"`
	Sound                bool          `env:"DOTATIMINGS_SOUND"`
	DesktopNotifications bool          `env:"DOTATIMINGS_DESKTOP_NOTIFICATIONS"`
	ReconcileOnResume    bool          `env:"DOTATIMINGS_RECONCILE_ON_RESUME"`
	Debug                bool          `env:"DOTATIMINGS_DEBUG"`
}

// DefaultSettings returns default settings for DotaTimings.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:         model.DefaultTickInterval,
		StartOffset:          model.DefaultStartOffset,
		Locale:               catalog.BaseLocale,
		Sound:                true,
		DesktopNotifications: true,
		ReconcileOnResume:    true,
		Debug:                false,
	}
}

// EngineConfig converts settings to the engine configuration.
func (settings Settings) EngineConfig() model.EngineConfig {
	config := model.DefaultEngineConfig()
	config.TickInterval = settings.TickInterval
	config.StartOffset = settings.StartOffset
	config.ReconcileOnResume = settings.ReconcileOnResume
	return config.Normalize()
}
