// Package camera produces transfer payloads: it captures a still through a
// pluggable backend, runs the processing pipeline, and persists both the
// raw and the processed image.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/otxo/fotolink/internal/util"
)

// Request carries the per-command processing parameters.
type Request struct {
	Width   int // target width in pixels, aspect ratio preserved
	Quality int // 1..10, clamped at encode time
}

// Capture is one produced payload. ID is the opaque token that travels in
// the transfer header.
type Capture struct {
	ID            string
	Data          []byte
	FullresPath   string
	ProcessedPath string
}

// Backend takes the actual picture. The default implementation shells out
// to the capture tool; tests substitute their own.
type Backend interface {
	CaptureStill(ctx context.Context, dst string) error
}

// Config holds the pipeline settings.
type Config struct {
	FullresDir   string
	ProcessedDir string
	Enhance      bool
}

// DefaultConfig stores captures next to the working directory.
func DefaultConfig() Config {
	return Config{
		FullresDir:   "fullres",
		ProcessedDir: "processed",
		Enhance:      true,
	}
}

// Validate checks the pipeline settings.
func (c Config) Validate() error {
	if c.FullresDir == "" {
		return errors.New("fullres_dir must be set")
	}
	if c.ProcessedDir == "" {
		return errors.New("processed_dir must be set")
	}
	return nil
}

// StillCamera runs capture and processing for each dispatched command.
type StillCamera struct {
	cfg     Config
	backend Backend
	log     zerolog.Logger
}

// New validates cfg and returns a camera over backend.
func New(cfg Config, backend Backend, log zerolog.Logger) (*StillCamera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("camera config: %w", err)
	}
	if backend == nil {
		return nil, errors.New("camera backend must be set")
	}
	return &StillCamera{cfg: cfg, backend: backend, log: log}, nil
}

// Produce captures a fresh still and returns the processed JPEG payload.
// The full-resolution capture lands in FullresDir, the processed copy in
// ProcessedDir; name collisions get numeric suffixes, never overwrites.
func (c *StillCamera) Produce(ctx context.Context, req Request) (Capture, error) {
	if req.Width <= 0 {
		return Capture{}, errors.New("width must be positive")
	}
	if err := util.EnsureDir(c.cfg.FullresDir); err != nil {
		return Capture{}, err
	}
	if err := util.EnsureDir(c.cfg.ProcessedDir); err != nil {
		return Capture{}, err
	}

	now := time.Now()
	stamp := now.Format("20060102_150405")
	fullresPath := util.UniquePath(c.cfg.FullresDir, stamp+"_fullres.jpg")

	c.log.Debug().Str("dst", fullresPath).Msg("capturing still")
	if err := c.backend.CaptureStill(ctx, fullresPath); err != nil {
		return Capture{}, fmt.Errorf("capture: %w", err)
	}

	img, err := imaging.Open(fullresPath)
	if err != nil {
		return Capture{}, fmt.Errorf("decode capture: %w", err)
	}
	if c.cfg.Enhance {
		img = enhance(img)
	}
	if req.Width < img.Bounds().Dx() {
		img = imaging.Resize(img, req.Width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	quality := clampQuality(req.Quality) * 10
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Capture{}, fmt.Errorf("encode: %w", err)
	}

	processedPath := util.UniquePath(c.cfg.ProcessedDir, stamp+".jpg")
	if err := os.WriteFile(processedPath, buf.Bytes(), 0o644); err != nil {
		return Capture{}, fmt.Errorf("persist processed copy: %w", err)
	}

	capture := Capture{
		ID:            strconv.FormatInt(now.Unix(), 10),
		Data:          buf.Bytes(),
		FullresPath:   fullresPath,
		ProcessedPath: processedPath,
	}
	c.log.Info().
		Str("id", capture.ID).
		Int("bytes", len(capture.Data)).
		Int("width", req.Width).
		Int("quality", quality).
		Msg("payload ready")
	return capture, nil
}

// clampQuality forces the 1..10 scale the peer protocol documents.
func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 10 {
		return 10
	}
	return q
}
