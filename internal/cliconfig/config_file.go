package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config with TOML-friendly types: durations travel as
// strings, booleans as pointers so absence is distinguishable from false.
type fileConfig struct {
	Port             string `toml:"port"`
	Baud             int    `toml:"baud"`
	ReadTimeout      string `toml:"read_timeout"`
	Trigger          string `toml:"trigger"`
	DefaultWidth     int    `toml:"default_width"`
	DefaultQuality   int    `toml:"default_quality"`
	ChunkSize        int    `toml:"chunk_size"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	FullresDir       string `toml:"fullres_dir"`
	ProcessedDir     string `toml:"processed_dir"`
	OutputDir        string `toml:"output_dir"`
	CaptureCommand   string `toml:"capture_command"`
	CaptureWarmup    string `toml:"capture_warmup"`
	Enhance          *bool  `toml:"enhance"`
	LogLevel         string `toml:"log_level"`
}

// DefaultPath returns ~/.fotolink/config.toml, or "" when the home
// directory cannot be resolved.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fotolink", "config.toml")
	}
	return ""
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func applyFile(cfg *Config, fc fileConfig, changed map[string]bool) error {
	s := setter{changed: changed}

	s.setString("port", fc.Port, &cfg.Port)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setString("trigger", fc.Trigger, &cfg.Trigger)
	s.setInt("width", fc.DefaultWidth, &cfg.DefaultWidth)
	s.setInt("quality", fc.DefaultQuality, &cfg.DefaultQuality)
	s.setInt("chunk", fc.ChunkSize, &cfg.ChunkSize)
	s.setString("fullres-dir", fc.FullresDir, &cfg.FullresDir)
	s.setString("processed-dir", fc.ProcessedDir, &cfg.ProcessedDir)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("capture-command", fc.CaptureCommand, &cfg.CaptureCommand)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HandshakeTimeout, &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("capture-warmup", fc.CaptureWarmup, &cfg.CaptureWarmup); err != nil {
		return err
	}

	s.setBool("no-enhance", fc.Enhance, &cfg.Enhance)
	return nil
}
