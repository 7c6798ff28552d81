package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
adb_path = "/opt/platform-tools/adb"
max_device_parallel = 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/platform-tools/adb", cfg.ADBPath)
	assert.Equal(t, 2, cfg.MaxDeviceParallel)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().MaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, Default().JournalPath, cfg.JournalPath)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, `adb_path = [broken`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"zero parallelism", "max_device_parallel = 0"},
		{"negative attempts", "max_attempts = -1"},
		{"empty adb path", `adb_path = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}
