// Package config provides configuration file parsing for adbprune.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Config is the user-tunable configuration, read from a TOML file in the
// XDG config directory. Zero values are filled in from Default.
type Config struct {
	// ADBPath is the adb binary to invoke; resolved via PATH when bare.
	ADBPath string `toml:"adb_path"`

	// ListsPath points at the debloat recommendation lists JSON file.
	ListsPath string `toml:"lists_path"`

	// JournalPath is the SQLite undo journal location.
	JournalPath string `toml:"journal_path"`

	// MaxDeviceParallel bounds how many devices mutate concurrently.
	MaxDeviceParallel int `toml:"max_device_parallel"`

	// MaxAttempts bounds transport calls per action, retries included.
	MaxAttempts int `toml:"max_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ADBPath:           "adb",
		ListsPath:         filepath.Join(xdg.DataHome, "adbprune", "lists.json"),
		JournalPath:       filepath.Join(xdg.DataHome, "adbprune", "journal.db"),
		MaxDeviceParallel: 4,
		MaxAttempts:       3,
	}
}

// Path returns the default config file location, respecting
// XDG_CONFIG_HOME.
func Path() string {
	return filepath.Join(xdg.ConfigHome, "adbprune", "config.toml")
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ADBPath == "" {
		return fmt.Errorf("adb_path must not be empty")
	}
	if c.MaxDeviceParallel < 1 {
		return fmt.Errorf("max_device_parallel must be at least 1, got %d", c.MaxDeviceParallel)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}
