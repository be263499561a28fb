package transfer

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// readRetryPause throttles retries after a hard read error so a broken
// channel cannot spin the wait loop.
const readRetryPause = 50 * time.Millisecond

// Waiter blocks for expected control tokens within a wall-clock deadline.
type Waiter struct {
	log zerolog.Logger
}

// NewWaiter returns a waiter logging discarded traffic to log.
func NewWaiter(log zerolog.Logger) *Waiter {
	return &Waiter{log: log}
}

// Await reads lines from ch until one, trimmed of surrounding whitespace,
// equals token exactly. It returns true on a match and false once timeout
// has elapsed since the call began or ctx is cancelled. Non-matching lines
// are discarded without extending the deadline; idle timeouts and
// undecodable input never end the wait early. Only end-of-stream does,
// since the token can no longer arrive.
func (w *Waiter) Await(ctx context.Context, ch Channel, token string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		line, err := ch.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.log.Debug().Str("want", token).Msg("channel closed during wait")
				return false
			}
			if !errors.Is(err, ErrReadTimeout) {
				w.log.Debug().Err(err).Str("want", token).Msg("read error during wait")
				time.Sleep(readRetryPause)
			}
			continue
		}
		got := strings.TrimSpace(line)
		if got == token {
			return true
		}
		if got != "" {
			w.log.Debug().Str("line", got).Str("want", token).Msg("discarding line")
		}
	}
	return false
}
