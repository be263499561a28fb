package cliconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceDelay coalesces the bursts of write events editors and atomic
// renames produce for a single save.
const debounceDelay = 100 * time.Millisecond

// Live are the dispatch settings safe to pick up while the station runs.
// Everything else in the file needs a restart to take effect.
type Live struct {
	Trigger string
	Width   int
	Quality int
}

// Watcher follows the config file and keeps an atomic snapshot of the
// live-tunable fields. The dispatch loop reads the snapshot per command,
// so an edited trigger word or default applies to the next command
// without restarting the station.
type Watcher struct {
	path string
	base Config
	log  zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
	snap     atomic.Value // Live
}

// NewWatcher returns a watcher over the file at path. base is the resolved
// startup configuration; its live fields seed the first snapshot.
func NewWatcher(path string, base Config, log zerolog.Logger) *Watcher {
	w := &Watcher{path: path, base: base, log: log}
	w.snap.Store(liveOf(base))
	return w
}

// Snapshot returns the current live settings. Safe for concurrent use.
func (w *Watcher) Snapshot() Live {
	return w.snap.Load().(Live)
}

// Run watches the file's directory until ctx is cancelled. Watching the
// directory rather than the file keeps the watch alive across the
// rename-over-save most editors do.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}
	w.log.Debug().Str("path", w.path).Msg("watching config file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.reload)
}

// reload re-reads the file onto a copy of the startup configuration and
// swaps the live snapshot. Fields that cannot apply without a restart are
// reported, not applied.
func (w *Watcher) reload() {
	fc, err := loadFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload skipped")
		return
	}
	next := w.base
	if err := applyFile(&next, fc, nil); err != nil {
		w.log.Warn().Err(err).Msg("config reload skipped")
		return
	}
	if err := next.Validate(); err != nil {
		w.log.Warn().Err(err).Msg("config reload rejected")
		return
	}

	for _, field := range restartFields(w.base, next) {
		w.log.Info().Str("field", field).Msg("config change needs a restart")
	}

	live := liveOf(next)
	if prev := w.Snapshot(); prev != live {
		w.log.Info().
			Str("trigger", live.Trigger).
			Int("width", live.Width).
			Int("quality", live.Quality).
			Msg("dispatch settings updated")
	}
	w.snap.Store(live)
}

func liveOf(c Config) Live {
	return Live{Trigger: c.Trigger, Width: c.DefaultWidth, Quality: c.DefaultQuality}
}

// restartFields names the changed fields the running process cannot adopt.
func restartFields(old, next Config) []string {
	var fields []string
	if old.Port != next.Port {
		fields = append(fields, "port")
	}
	if old.Baud != next.Baud {
		fields = append(fields, "baud")
	}
	if old.ReadTimeout != next.ReadTimeout {
		fields = append(fields, "read_timeout")
	}
	if old.ChunkSize != next.ChunkSize {
		fields = append(fields, "chunk_size")
	}
	if old.HandshakeTimeout != next.HandshakeTimeout {
		fields = append(fields, "handshake_timeout")
	}
	if old.FullresDir != next.FullresDir {
		fields = append(fields, "fullres_dir")
	}
	if old.ProcessedDir != next.ProcessedDir {
		fields = append(fields, "processed_dir")
	}
	if old.OutputDir != next.OutputDir {
		fields = append(fields, "output_dir")
	}
	if old.CaptureCommand != next.CaptureCommand {
		fields = append(fields, "capture_command")
	}
	if old.CaptureWarmup != next.CaptureWarmup {
		fields = append(fields, "capture_warmup")
	}
	if old.Enhance != next.Enhance {
		fields = append(fields, "enhance")
	}
	if old.LogLevel != next.LogLevel {
		fields = append(fields, "log_level")
	}
	return fields
}
