// Package receiver runs the consuming endpoint: it accepts transfers from
// the channel one at a time and persists each completed payload under the
// output directory. A failed transfer leaves no partial file behind.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/otxo/fotolink/internal/util"
	"github.com/otxo/fotolink/pkg/transfer"
)

// fallbackExt is used when the payload bytes match no known format.
const fallbackExt = ".bin"

// Config holds the receive loop settings.
type Config struct {
	OutputDir string
}

// DefaultConfig stores payloads next to the working directory.
func DefaultConfig() Config {
	return Config{OutputDir: "received"}
}

// Validate checks the receive settings.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir must be set")
	}
	return nil
}

// App wires the channel and the inbound session driver into the receive
// loop.
type App struct {
	instanceID string
	cfg        Config
	ch         transfer.Channel
	inbound    *transfer.Inbound
	log        zerolog.Logger
}

// NewApp validates cfg and returns a receiver app.
func NewApp(cfg Config, ch transfer.Channel, inbound *transfer.Inbound, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("receiver config: %w", err)
	}
	if ch == nil || inbound == nil {
		return nil, errors.New("receiver needs a channel and an inbound session driver")
	}
	return &App{
		instanceID: uuid.New().String(),
		cfg:        cfg,
		ch:         ch,
		inbound:    inbound,
		log:        log,
	}, nil
}

// Run accepts transfers until ctx is cancelled (returns nil) or the
// channel fails hard (returns the error; the caller exits non-zero). A
// timed-out transfer is logged and the loop resumes waiting for the next
// header.
func (a *App) Run(ctx context.Context) error {
	if err := util.EnsureDir(a.cfg.OutputDir); err != nil {
		return err
	}
	a.log.Info().
		Str("instance", a.instanceID).
		Str("dir", a.cfg.OutputDir).
		Msg("receiver listening")

	for {
		if ctx.Err() != nil {
			return nil
		}
		path, err := a.receiveOne(ctx)
		if err != nil {
			var timeout *transfer.TimeoutError
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return nil
			case errors.As(err, &timeout):
				a.log.Error().
					Stringer("phase", timeout.Phase).
					Int("offset", timeout.Offset).
					Msg("transfer abandoned")
				continue
			default:
				return err
			}
		}
		a.log.Info().Str("path", path).Msg("payload stored")
	}
}

// receiveOne accepts a single transfer, staging the payload in a hidden
// part file that becomes the final name only once the exchange completes.
func (a *App) receiveOne(ctx context.Context) (string, error) {
	stage, err := os.CreateTemp(a.cfg.OutputDir, ".incoming-*.part")
	if err != nil {
		return "", fmt.Errorf("stage file: %w", err)
	}
	stagePath := stage.Name()

	hdr, stats, err := a.inbound.Receive(ctx, a.ch, stage)
	if closeErr := stage.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close stage file: %w", closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(stagePath); rmErr != nil {
			a.log.Warn().Err(rmErr).Str("path", stagePath).Msg("stage cleanup failed")
		}
		return "", err
	}

	final := util.UniquePath(a.cfg.OutputDir, hdr.ID+a.sniffExt(stagePath))
	if err := os.Rename(stagePath, final); err != nil {
		os.Remove(stagePath)
		return "", fmt.Errorf("finalize %s: %w", final, err)
	}

	a.log.Debug().
		Str("id", hdr.ID).
		Int("bytes", stats.Bytes).
		Int("chunks", stats.Chunks).
		Dur("elapsed", stats.Elapsed).
		Msg("transfer complete")
	return final, nil
}

// sniffExt picks a file extension from the payload content. The wire
// carries no type information, so the bytes themselves are the only hint.
func (a *App) sniffExt(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil || mtype.Extension() == "" {
		return fallbackExt
	}
	return mtype.Extension()
}
