package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/cloudtree/cloudtree/internal/constants"
)

// Settings is the persisted user configuration.
//
// INI format:
//
//	[ui]
//	theme = dark
//	splash = true
//
//	[rclone]
//	binary = rclone
//	extra_args =
//
//	[downloads]
//	dest_dir = /home/me/Downloads/cloudtree
//
//	[state]
//	last_remote = gdrive
//	last_path = photos/2024
type Settings struct {
	UI        UIConfig
	Rclone    RcloneConfig
	Downloads DownloadConfig
	State     StateConfig
}

// UIConfig contains interface settings.
type UIConfig struct {
	// Theme selects the color scheme, "dark" or "light".
	// Default: dark
	Theme string `ini:"theme"`

	// Splash shows the startup splash screen.
	// Default: true
	Splash bool `ini:"splash"`
}

// RcloneConfig contains subprocess settings.
type RcloneConfig struct {
	// Binary is the rclone executable name or path.
	// Default: rclone (resolved on PATH)
	Binary string `ini:"binary"`

	// ExtraArgs is a space-separated list appended to every rclone
	// invocation, e.g. "--config /path/to/rclone.conf".
	ExtraArgs string `ini:"extra_args"`
}

// DownloadConfig contains download settings.
type DownloadConfig struct {
	// DestDir is the default destination directory.
	DestDir string `ini:"dest_dir"`
}

// StateConfig remembers where the last session left off.
type StateConfig struct {
	LastRemote string `ini:"last_remote"`
	LastPath   string `ini:"last_path"`
}

// Settings validation errors
var (
	ErrInvalidTheme   = errors.New(`theme must be "dark" or "light"`)
	ErrEmptyBinary    = errors.New("rclone binary must not be empty")
	ErrEmptyDestDir   = errors.New("download dest_dir must not be empty")
	ErrUnknownSetting = errors.New("unknown setting key")
)

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		UI: UIConfig{
			Theme:  "dark",
			Splash: true,
		},
		Rclone: RcloneConfig{
			Binary: constants.RcloneBinary,
		},
		Downloads: DownloadConfig{
			DestDir: DefaultDownloadDir(),
		},
	}
}

// Load reads the settings file. If path is empty, the default path is
// used. A missing file yields defaults and no error; an unreadable or
// malformed file is an error. Out-of-range values fall back to their
// defaults rather than failing the load.
func Load(path string) (*Settings, error) {
	cfg := NewSettings()

	if path == "" {
		path = DefaultSettingsPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", constants.ConfigFileName, err)
	}

	uiSection := iniFile.Section("ui")
	cfg.UI.Theme = uiSection.Key("theme").In("dark", []string{"dark", "light"})
	cfg.UI.Splash = uiSection.Key("splash").MustBool(true)

	rcloneSection := iniFile.Section("rclone")
	cfg.Rclone.Binary = rcloneSection.Key("binary").MustString(constants.RcloneBinary)
	cfg.Rclone.ExtraArgs = rcloneSection.Key("extra_args").String()

	downloadsSection := iniFile.Section("downloads")
	cfg.Downloads.DestDir = downloadsSection.Key("dest_dir").MustString(DefaultDownloadDir())

	stateSection := iniFile.Section("state")
	cfg.State.LastRemote = stateSection.Key("last_remote").String()
	cfg.State.LastPath = stateSection.Key("last_path").String()

	return cfg, nil
}

// Save writes the settings file atomically. If path is empty, the
// default path is used; parent directories are created as needed.
func Save(cfg *Settings, path string) error {
	if path == "" {
		path = DefaultSettingsPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	uiSection, err := iniFile.NewSection("ui")
	if err != nil {
		return fmt.Errorf("failed to create ui section: %w", err)
	}
	uiSection.Key("theme").SetValue(cfg.UI.Theme)
	uiSection.Key("splash").SetValue(strconv.FormatBool(cfg.UI.Splash))

	rcloneSection, err := iniFile.NewSection("rclone")
	if err != nil {
		return fmt.Errorf("failed to create rclone section: %w", err)
	}
	rcloneSection.Key("binary").SetValue(cfg.Rclone.Binary)
	rcloneSection.Key("extra_args").SetValue(cfg.Rclone.ExtraArgs)

	downloadsSection, err := iniFile.NewSection("downloads")
	if err != nil {
		return fmt.Errorf("failed to create downloads section: %w", err)
	}
	downloadsSection.Key("dest_dir").SetValue(cfg.Downloads.DestDir)

	stateSection, err := iniFile.NewSection("state")
	if err != nil {
		return fmt.Errorf("failed to create state section: %w", err)
	}
	stateSection.Key("last_remote").SetValue(cfg.State.LastRemote)
	stateSection.Key("last_path").SetValue(cfg.State.LastPath)

	// Temporary file + rename for atomicity.
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks the settings for internal consistency.
func (cfg *Settings) Validate() error {
	if cfg.UI.Theme != "dark" && cfg.UI.Theme != "light" {
		return ErrInvalidTheme
	}
	if strings.TrimSpace(cfg.Rclone.Binary) == "" {
		return ErrEmptyBinary
	}
	if strings.TrimSpace(cfg.Downloads.DestDir) == "" {
		return ErrEmptyDestDir
	}
	return nil
}

// ExtraArgList returns ExtraArgs split on whitespace.
func (cfg *Settings) ExtraArgList() []string {
	return strings.Fields(cfg.Rclone.ExtraArgs)
}

// Keys returns the dotted setting keys in stable order.
func Keys() []string {
	keys := []string{
		"ui.theme", "ui.splash",
		"rclone.binary", "rclone.extra_args",
		"downloads.dest_dir",
		"state.last_remote", "state.last_path",
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key, e.g. "ui.theme".
func (cfg *Settings) Get(key string) (string, error) {
	switch key {
	case "ui.theme":
		return cfg.UI.Theme, nil
	case "ui.splash":
		return strconv.FormatBool(cfg.UI.Splash), nil
	case "rclone.binary":
		return cfg.Rclone.Binary, nil
	case "rclone.extra_args":
		return cfg.Rclone.ExtraArgs, nil
	case "downloads.dest_dir":
		return cfg.Downloads.DestDir, nil
	case "state.last_remote":
		return cfg.State.LastRemote, nil
	case "state.last_path":
		return cfg.State.LastPath, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
}

// Set assigns a dotted key and validates the result.
func (cfg *Settings) Set(key, value string) error {
	switch key {
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.splash":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ui.splash: %w", err)
		}
		cfg.UI.Splash = b
	case "rclone.binary":
		cfg.Rclone.Binary = value
	case "rclone.extra_args":
		cfg.Rclone.ExtraArgs = value
	case "downloads.dest_dir":
		cfg.Downloads.DestDir = value
	case "state.last_remote":
		cfg.State.LastRemote = value
	case "state.last_path":
		cfg.State.LastPath = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return cfg.Validate()
}
