package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(tb testing.TB, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "config.toml")
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg := DefaultConfig()

	err := Load(&cfg, filepath.Join(t.TempDir(), "nope.toml"), false, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	cfg := DefaultConfig()

	err := Load(&cfg, filepath.Join(t.TempDir(), "nope.toml"), true, nil)
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
port = "/dev/ttyUSB3"
baud = 9600
trigger = "shoot"
default_width = 800
handshake_timeout = "3s"
enhance = false
`)
	cfg := DefaultConfig()
	require.NoError(t, Load(&cfg, path, true, nil))

	assert.Equal(t, "/dev/ttyUSB3", cfg.Port)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, "shoot", cfg.Trigger)
	assert.Equal(t, 800, cfg.DefaultWidth)
	assert.Equal(t, 3*time.Second, cfg.HandshakeTimeout)
	assert.False(t, cfg.Enhance)
	assert.Equal(t, 5, cfg.DefaultQuality, "untouched fields keep their defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
port = "/dev/ttyUSB3"
baud = 9600
log_level = "warn"
`)
	t.Setenv("FOTOLINK_PORT", "/dev/ttyACM0")
	t.Setenv("FOTOLINK_BAUD", "57600")

	cfg := DefaultConfig()
	require.NoError(t, Load(&cfg, path, true, nil))

	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, "warn", cfg.LogLevel, "env leaves fields it does not cover alone")
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	path := writeConfigFile(t, `
port = "/dev/ttyUSB3"
baud = 9600
`)
	t.Setenv("FOTOLINK_PORT", "/dev/ttyACM0")

	cfg := DefaultConfig()
	cfg.Port = "/dev/serial0" // as bound by the flag
	cfg.Baud = 230400
	changed := map[string]bool{"port": true, "baud": true}

	require.NoError(t, Load(&cfg, path, true, changed))

	assert.Equal(t, "/dev/serial0", cfg.Port)
	assert.Equal(t, 230400, cfg.Baud)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfigFile(t, `handshake_timeout = "soon"`)
	cfg := DefaultConfig()

	err := Load(&cfg, path, true, nil)
	assert.ErrorContains(t, err, "timeout")
}

func TestLoad_BadEnvBaud(t *testing.T) {
	t.Setenv("FOTOLINK_BAUD", "fast")
	cfg := DefaultConfig()

	err := Load(&cfg, "", false, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero baud", func(c *Config) { c.Baud = 0 }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"empty trigger", func(c *Config) { c.Trigger = "" }},
		{"multi-word trigger", func(c *Config) { c.Trigger = "foto now" }},
		{"zero width", func(c *Config) { c.DefaultWidth = 0 }},
		{"quality too high", func(c *Config) { c.DefaultQuality = 11 }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"zero handshake timeout", func(c *Config) { c.HandshakeTimeout = 0 }},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"empty capture command", func(c *Config) { c.CaptureCommand = "" }},
	}

	require.NoError(t, DefaultConfig().Validate(), "defaults must validate")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
