package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/otxo/fotolink/internal/cliconfig"
	"github.com/otxo/fotolink/pkg/bridge"
	"github.com/otxo/fotolink/pkg/camera"
	"github.com/otxo/fotolink/pkg/concurrency"
	"github.com/otxo/fotolink/pkg/receiver"
	"github.com/otxo/fotolink/pkg/serialport"
	"github.com/otxo/fotolink/pkg/station"
	"github.com/otxo/fotolink/pkg/transfer"
	"github.com/otxo/fotolink/pkg/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// appState carries what PersistentPreRunE resolves for the subcommands.
type appState struct {
	cfg        cliconfig.Config
	configPath string
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	state := &appState{cfg: cliconfig.DefaultConfig()}
	var configFlag string

	root := &cobra.Command{
		Use:   "fotolink",
		Short: "Serial image transfer station and its tooling",
		Long: "fotolink moves camera captures over a point-to-point serial link\n" +
			"using a stop-and-wait handshake. It runs the producing station, a\n" +
			"one-shot file sender, the consuming receiver, and a serial console.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			if !explicit {
				configFlag = cliconfig.DefaultPath()
			}
			state.configPath = configFlag

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if err := cliconfig.Load(&state.cfg, configFlag, explicit, changed); err != nil {
				return err
			}
			state.log = newLogger(state.cfg.LogLevel)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "config file (default ~/.fotolink/config.toml)")
	pf.StringVar(&state.cfg.Port, "port", state.cfg.Port, "serial device path (default: discover)")
	pf.IntVar(&state.cfg.Baud, "baud", state.cfg.Baud, "serial baud rate")
	pf.StringVar(&state.cfg.LogLevel, "log-level", state.cfg.LogLevel, "log level (trace..error)")

	root.AddCommand(newStationCmd(state))
	root.AddCommand(newSendCmd(state))
	root.AddCommand(newReceiveCmd(state))
	root.AddCommand(newTermCmd(state))
	return root
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// openChannel resolves the device path (explicit or discovered) and opens
// it. Any failure here is the fatal startup condition: the caller lets it
// bubble to the CLI layer, which exits 1.
func openChannel(state *appState) (*serialport.Port, error) {
	name := state.cfg.Port
	if name == "" {
		var err error
		name, err = serialport.Discover()
		if err != nil {
			return nil, err
		}
		state.log.Info().Str("port", name).Msg("discovered serial device")
	}
	port, err := serialport.Open(name, serialport.Config{
		Baud:        state.cfg.Baud,
		ReadTimeout: state.cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	state.log.Info().Str("port", name).Int("baud", state.cfg.Baud).Msg("channel open")
	return port, nil
}

func newStationCmd(state *appState) *cobra.Command {
	var noEnhance bool

	cmd := &cobra.Command{
		Use:   "station",
		Short: "Run the producing endpoint: capture on trigger, transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("no-enhance") {
				state.cfg.Enhance = !noEnhance
			}

			port, err := openChannel(state)
			if err != nil {
				return err
			}
			defer port.Close()

			engine, err := transfer.NewEngine(transfer.Config{
				ChunkSize:        state.cfg.ChunkSize,
				HandshakeTimeout: state.cfg.HandshakeTimeout,
			}, state.log, transfer.LogListener{Log: state.log})
			if err != nil {
				return err
			}

			backend := camera.NewCommandBackend(state.cfg.CaptureCommand, state.cfg.CaptureWarmup)
			cam, err := camera.New(camera.Config{
				FullresDir:   state.cfg.FullresDir,
				ProcessedDir: state.cfg.ProcessedDir,
				Enhance:      state.cfg.Enhance,
			}, backend, state.log)
			if err != nil {
				return err
			}

			stationCfg := station.DefaultConfig()
			stationCfg.Trigger = state.cfg.Trigger
			stationCfg.DefaultWidth = state.cfg.DefaultWidth
			stationCfg.DefaultQuality = state.cfg.DefaultQuality
			app, err := station.NewApp(stationCfg, port, cam, engine, state.log)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			if state.configPath != "" {
				watcher := cliconfig.NewWatcher(state.configPath, state.cfg, state.log)
				app.SetTunablesFunc(func() station.Tunables {
					live := watcher.Snapshot()
					return station.Tunables{
						Trigger: live.Trigger,
						Width:   live.Width,
						Quality: live.Quality,
					}
				})
				g.Go(func() error {
					// A broken watch degrades to startup settings; it must
					// not take the station down.
					if err := watcher.Run(ctx); err != nil {
						state.log.Warn().Err(err).Msg("config watching disabled")
					}
					return nil
				})
			}
			g.Go(func() error { return app.Run(ctx) })
			return g.Wait()
		},
	}

	f := cmd.Flags()
	f.StringVar(&state.cfg.Trigger, "trigger", state.cfg.Trigger, "command word that starts a capture")
	f.IntVar(&state.cfg.DefaultWidth, "width", state.cfg.DefaultWidth, "default target width")
	f.IntVar(&state.cfg.DefaultQuality, "quality", state.cfg.DefaultQuality, "default quality 1..10")
	f.IntVar(&state.cfg.ChunkSize, "chunk", state.cfg.ChunkSize, "payload bytes per chunk")
	f.DurationVar(&state.cfg.HandshakeTimeout, "timeout", state.cfg.HandshakeTimeout, "per-phase handshake timeout")
	f.BoolVar(&noEnhance, "no-enhance", false, "skip the enhancement pass")
	f.StringVar(&state.cfg.FullresDir, "fullres-dir", state.cfg.FullresDir, "directory for raw captures")
	f.StringVar(&state.cfg.ProcessedDir, "processed-dir", state.cfg.ProcessedDir, "directory for processed copies")
	f.StringVar(&state.cfg.CaptureCommand, "capture-command", state.cfg.CaptureCommand, "still capture tool")
	return cmd
}

func newSendCmd(state *appState) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Send one file over the channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if id == "" {
				id = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			port, err := openChannel(state)
			if err != nil {
				return err
			}
			defer port.Close()

			engine, err := transfer.NewEngine(transfer.Config{
				ChunkSize:        state.cfg.ChunkSize,
				HandshakeTimeout: state.cfg.HandshakeTimeout,
			}, state.log, transfer.LogListener{Log: state.log})
			if err != nil {
				return err
			}

			return concurrency.NewGuard().Execute(func() error {
				stats, err := engine.Send(cmd.Context(), port, transfer.Outbound{ID: id, Payload: payload})
				if err != nil {
					return err
				}
				state.log.Info().
					Str("id", id).
					Int("bytes", stats.Bytes).
					Dur("elapsed", stats.Elapsed).
					Msg("file sent")
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "transfer id (default: file name without extension)")
	f.IntVar(&state.cfg.ChunkSize, "chunk", state.cfg.ChunkSize, "payload bytes per chunk")
	f.DurationVar(&state.cfg.HandshakeTimeout, "timeout", state.cfg.HandshakeTimeout, "per-phase handshake timeout")
	return cmd
}

func newReceiveCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Run the consuming endpoint: acknowledge and persist payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := openChannel(state)
			if err != nil {
				return err
			}
			defer port.Close()

			inbound, err := transfer.NewInbound(transfer.Config{
				ChunkSize:        state.cfg.ChunkSize,
				HandshakeTimeout: state.cfg.HandshakeTimeout,
			}, state.log, transfer.LogListener{Log: state.log})
			if err != nil {
				return err
			}

			app, err := receiver.NewApp(receiver.Config{OutputDir: state.cfg.OutputDir}, port, inbound, state.log)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&state.cfg.OutputDir, "output-dir", state.cfg.OutputDir, "directory for received payloads")
	f.IntVar(&state.cfg.ChunkSize, "chunk", state.cfg.ChunkSize, "payload bytes per chunk")
	f.DurationVar(&state.cfg.HandshakeTimeout, "timeout", state.cfg.HandshakeTimeout, "per-chunk read timeout")
	return cmd
}

func newTermCmd(state *appState) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "term",
		Short: "Attach an interactive console to the channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := openChannel(state)
			if err != nil {
				return err
			}
			defer port.Close()

			if plain {
				return bridge.Run(cmd.Context(), port, os.Stdin, os.Stdout, state.log)
			}

			model := ui.NewTermModel(port, port.Name(), state.cfg.Baud)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			final, err := p.Run()
			if err != nil {
				return err
			}
			return final.(ui.TermModel).Err()
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "raw stdio bridge instead of the full-screen console")
	return cmd
}
