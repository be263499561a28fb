// Package station runs the producing endpoint: it listens for trigger
// commands on the serial channel, produces a payload for each one, and
// moves it with the transfer engine. A failed command never stops the
// listening loop.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/otxo/fotolink/pkg/camera"
	"github.com/otxo/fotolink/pkg/concurrency"
	"github.com/otxo/fotolink/pkg/transfer"
)

// greeting is written once at startup so the peer knows the station is
// attached. It is not part of the transfer protocol.
const greeting = "ready\n"

// Producer turns a command's parameters into a payload. The station never
// looks inside the payload it ships.
type Producer interface {
	Produce(ctx context.Context, req camera.Request) (camera.Capture, error)
}

// Config holds the dispatch loop settings.
type Config struct {
	Trigger        string
	DefaultWidth   int
	DefaultQuality int
	Announce       bool
	SettleDelay    time.Duration
}

// DefaultConfig matches the deployed station.
func DefaultConfig() Config {
	return Config{
		Trigger:        "foto",
		DefaultWidth:   1024,
		DefaultQuality: 5,
		Announce:       true,
		SettleDelay:    time.Second,
	}
}

// Validate checks the dispatch settings.
func (c Config) Validate() error {
	if len(strings.Fields(c.Trigger)) != 1 {
		return errors.New("trigger must be a single word")
	}
	if c.DefaultWidth <= 0 {
		return errors.New("default_width must be positive")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 10 {
		return errors.New("default_quality must be within 1..10")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay cannot be negative")
	}
	return nil
}

// App wires the channel, the producer and the engine into the dispatch
// loop.
type App struct {
	instanceID string
	cfg        Config
	ch         transfer.Channel
	producer   Producer
	engine     *transfer.Engine
	guard      *concurrency.Guard
	tunables   func() Tunables
	log        zerolog.Logger
}

// NewApp validates cfg and returns a station app.
func NewApp(cfg Config, ch transfer.Channel, producer Producer, engine *transfer.Engine, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("station config: %w", err)
	}
	if ch == nil || producer == nil || engine == nil {
		return nil, errors.New("station needs a channel, a producer and an engine")
	}
	app := &App{
		instanceID: uuid.New().String(),
		cfg:        cfg,
		ch:         ch,
		producer:   producer,
		engine:     engine,
		guard:      concurrency.NewGuard(),
		log:        log,
	}
	app.tunables = func() Tunables {
		return Tunables{Trigger: cfg.Trigger, Width: cfg.DefaultWidth, Quality: cfg.DefaultQuality}
	}
	return app, nil
}

// SetTunablesFunc installs a live source for the dispatch tunables, such
// as a watched config file. fn must be safe for concurrent calls.
func (a *App) SetTunablesFunc(fn func() Tunables) {
	if fn != nil {
		a.tunables = fn
	}
}

// Run executes the dispatch loop until ctx is cancelled (returns nil) or
// the channel fails hard (returns the error; the caller exits non-zero).
func (a *App) Run(ctx context.Context) error {
	a.log.Info().
		Str("instance", a.instanceID).
		Str("trigger", a.cfg.Trigger).
		Msg("station listening")

	if a.cfg.Announce {
		if err := a.announce(ctx); err != nil {
			return err
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := a.ch.ReadLine()
		if err != nil {
			if errors.Is(err, transfer.ErrReadTimeout) {
				continue
			}
			return fmt.Errorf("read command: %w", err)
		}
		a.handleLine(ctx, line)
	}
}

// announce drops stale input, gives the peer a moment to settle, then
// writes the greeting line.
func (a *App) announce(ctx context.Context) error {
	if err := a.ch.ResetInput(); err != nil {
		return err
	}
	if a.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.cfg.SettleDelay):
		}
	}
	if _, err := io.WriteString(a.ch, greeting); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	return nil
}

func (a *App) handleLine(ctx context.Context, raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	tun := a.tunables()
	cmd, warnings, ok := ParseCommand(line, tun)
	if !ok {
		a.log.Warn().Str("line", line).Msg("ignoring unknown command")
		return
	}
	for _, w := range warnings {
		a.log.Warn().
			Str("field", w.Field).
			Str("value", w.Value).
			Msg("unparseable field, using default")
	}
	a.log.Info().Int("width", cmd.Width).Int("quality", cmd.Quality).Msg("command accepted")

	if err := a.dispatch(ctx, cmd); err != nil {
		var timeout *transfer.TimeoutError
		switch {
		case errors.As(err, &timeout):
			a.log.Error().
				Stringer("phase", timeout.Phase).
				Int("offset", timeout.Offset).
				Msg("transfer abandoned")
		case errors.Is(err, concurrency.ErrBusy):
			a.log.Warn().Msg("transfer in flight, command dropped")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Shutdown in progress; the loop exits on its next pass.
		default:
			a.log.Error().Err(err).Msg("command failed")
		}
	}
}

// dispatch produces a payload and ships it, holding the link guard for
// the whole round trip.
func (a *App) dispatch(ctx context.Context, cmd Command) error {
	return a.guard.Execute(func() error {
		capture, err := a.producer.Produce(ctx, camera.Request{Width: cmd.Width, Quality: cmd.Quality})
		if err != nil {
			return fmt.Errorf("produce payload: %w", err)
		}
		if _, err := a.engine.Send(ctx, a.ch, transfer.Outbound{ID: capture.ID, Payload: capture.Data}); err != nil {
			return err
		}
		return nil
	})
}
