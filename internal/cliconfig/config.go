// Package cliconfig layers the fotolink configuration from four sources,
// in ascending precedence: built-in defaults, the TOML config file,
// FOTOLINK_* environment variables, and command-line flags. Flags win by
// construction: file and environment values are only applied to fields
// whose flag was not explicitly set.
package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the resolved configuration every subcommand starts from.
type Config struct {
	// Channel.
	Port        string // empty means discovery
	Baud        int
	ReadTimeout time.Duration

	// Dispatch.
	Trigger        string
	DefaultWidth   int
	DefaultQuality int

	// Protocol.
	ChunkSize        int
	HandshakeTimeout time.Duration

	// Artifact directories.
	FullresDir   string
	ProcessedDir string
	OutputDir    string

	// Capture.
	CaptureCommand string
	CaptureWarmup  time.Duration
	Enhance        bool

	LogLevel string
}

// DefaultConfig returns the built-in defaults, matching the deployed
// station and its peer firmware.
func DefaultConfig() Config {
	return Config{
		Baud:             115200,
		ReadTimeout:      time.Second,
		Trigger:          "foto",
		DefaultWidth:     1024,
		DefaultQuality:   5,
		ChunkSize:        256,
		HandshakeTimeout: 10 * time.Second,
		FullresDir:       "fullres",
		ProcessedDir:     "processed",
		OutputDir:        "received",
		CaptureCommand:   "rpicam-still",
		CaptureWarmup:    2 * time.Second,
		Enhance:          true,
		LogLevel:         "info",
	}
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return errors.New("baud must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	if len(strings.Fields(c.Trigger)) != 1 {
		return errors.New("trigger must be a single word")
	}
	if c.DefaultWidth <= 0 {
		return errors.New("default_width must be positive")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 10 {
		return errors.New("default_quality must be within 1..10")
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake_timeout must be positive")
	}
	if c.FullresDir == "" || c.ProcessedDir == "" || c.OutputDir == "" {
		return errors.New("artifact directories must be set")
	}
	if c.CaptureCommand == "" {
		return errors.New("capture_command must be set")
	}
	if c.CaptureWarmup < 0 {
		return errors.New("capture_warmup cannot be negative")
	}
	return nil
}

// Load resolves cfg in place: the config file at path (skipped when the
// default path names nothing; an explicitly chosen file must exist), then
// the environment. changed marks flags the user set on the command line;
// those fields are never touched.
func Load(cfg *Config, path string, explicit bool, changed map[string]bool) error {
	if path != "" {
		fc, err := loadFile(path)
		switch {
		case err == nil:
			if err := applyFile(cfg, fc, changed); err != nil {
				return fmt.Errorf("config file %s: %w", path, err)
			}
		case explicit:
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// setter applies a source value only when the field's flag was not set on
// the command line.
type setter struct {
	changed map[string]bool
}

func (s setter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s setter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s setter) setIntString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i > 0 {
		*dst = i
	}
	return nil
}

func (s setter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s setter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
