// Package config provides configuration management for cloudtree.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/cloudtree/cloudtree/internal/constants"
)

// Dir returns the cloudtree configuration directory.
//
// Locations:
//   - Windows: %APPDATA%\CloudTree
//   - Unix: ~/.config/cloudtree
func Dir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "cloudtree")
			}
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "CloudTree")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "cloudtree")
		}
		return filepath.Join(homeDir, ".config", constants.AppName)
	}
	return filepath.Join(configDir, constants.AppName)
}

// LogDirectory returns the directory for session logs.
func LogDirectory() string {
	return filepath.Join(Dir(), "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
// Uses 0700 permissions to restrict log access to the owner.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// DefaultSettingsPath returns the default path of the settings file.
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), constants.ConfigFileName)
}

// DefaultDownloadDir returns the platform default destination for
// downloaded folders.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return `C:\Downloads\cloudtree`
		}
		return "/tmp/cloudtree"
	}
	return filepath.Join(home, "Downloads", constants.AppName)
}
