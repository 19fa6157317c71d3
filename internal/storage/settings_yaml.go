package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dotatimings/internal/config"
	"dotatimings/internal/core/catalog"
)

const settingsFileName = "settings.yaml"

// Pointer fields tell a missing key apart from an explicit zero or false.
type yamlSettings struct {
	TickIntervalMillis   int    `yaml:"tick_interval_ms,omitempty"`
	StartOffsetSeconds   *int   `yaml:"start_offset_seconds,omitempty"`
	Locale               string `yaml:"locale,omitempty"`
	Sound                *bool  `yaml:"sound,omitempty"`
	DesktopNotifications *bool  `yaml:"desktop_notifications,omitempty"`
	ReconcileOnResume    *bool  `yaml:"reconcile_on_resume,omitempty"`
	Debug                bool   `yaml:"debug,omitempty"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (config.Settings, error) {
	configPath, err := SettingsPath(appName)
	if err != nil {
		return config.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads user preferences from the YAML file at configPath.
func LoadSettingsFile(configPath string) (config.Settings, error) {
	settings := config.DefaultSettings()
	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings config.Settings) error {
	configPath, err := SettingsPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile writes user preferences to the YAML file at configPath.
func SaveSettingsFile(configPath string, settings config.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	startOffset := settings.StartOffset
	sound := settings.Sound
	desktop := settings.DesktopNotifications
	reconcile := settings.ReconcileOnResume
	fileData := yamlSettings{
		TickIntervalMillis:   int(settings.TickInterval.Milliseconds()),
		StartOffsetSeconds:   &startOffset,
		Locale:               settings.Locale,
		Sound:                &sound,
		DesktopNotifications: &desktop,
		ReconcileOnResume:    &reconcile,
		Debug:                settings.Debug,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// SettingsPath returns the settings file location for appName.
func SettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *config.Settings, fileData yamlSettings) {
	if fileData.TickIntervalMillis > 0 {
		settings.TickInterval = time.Duration(fileData.TickIntervalMillis) * time.Millisecond
	}
	if fileData.StartOffsetSeconds != nil {
		settings.StartOffset = *fileData.StartOffsetSeconds
	}

	locale := strings.TrimSpace(fileData.Locale)
	for _, supported := range catalog.Locales() {
		if strings.EqualFold(locale, supported) {
			settings.Locale = supported
		}
	}

	if fileData.Sound != nil {
		settings.Sound = *fileData.Sound
	}
	if fileData.DesktopNotifications != nil {
		settings.DesktopNotifications = *fileData.DesktopNotifications
	}
	if fileData.ReconcileOnResume != nil {
		settings.ReconcileOnResume = *fileData.ReconcileOnResume
	}
	settings.Debug = fileData.Debug
}
