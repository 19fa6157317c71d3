package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const databaseFileName = "matches.db"

// Paths resolves where the application keeps its files.
type Paths struct {
	AppName string

	userConfigDir func() (string, error)
	userHomeDir   func() (string, error)
	goos          string
}

// NewPaths returns paths for appName under the OS-standard directories.
func NewPaths(appName string) Paths {
	return Paths{
		AppName:       appName,
		userConfigDir: os.UserConfigDir,
		userHomeDir:   os.UserHomeDir,
		goos:          runtime.GOOS,
	}
}

// ConfigDir returns the OS-standard configuration directory.
func (paths Paths) ConfigDir() (string, error) {
	configDir, err := paths.userConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := paths.userHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(paths.goos, homeDir), nil
}

// AppDir returns the application's own directory, creating it if needed.
func (paths Paths) AppDir() (string, error) {
	name := strings.TrimSpace(paths.AppName)
	if name == "" {
		return "", fmt.Errorf("app dir: app name is empty")
	}
	configDir, err := paths.ConfigDir()
	if err != nil {
		return "", err
	}
	appDir := filepath.Join(configDir, name)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return "", fmt.Errorf("create app dir: %w", err)
	}
	return appDir, nil
}

// DatabasePath returns the default match history database location.
func (paths Paths) DatabasePath() (string, error) {
	appDir, err := paths.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, databaseFileName), nil
}

func fallbackConfigDir(goos, homeDir string) string {
	switch goos {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support")
	default:
		return filepath.Join(homeDir, ".config")
	}
}
