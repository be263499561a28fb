// Package bridge binds the serial channel to a local terminal for
// interactive debugging of the peer device. No transfer-protocol
// interpretation happens here; bytes in, bytes out.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/otxo/fotolink/pkg/transfer"
)

// Run bridges ch and the local terminal until ctx is cancelled, the input
// stream ends, or either direction fails hard. Two goroutines run
// concurrently: one drains channel lines into out, the other forwards
// input lines to the channel. The directions share no state beyond the
// channel itself.
func Run(ctx context.Context, ch transfer.Channel, in io.Reader, out io.Writer, log zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return drain(ctx, ch, out) })
	g.Go(func() error { return forward(ctx, ch, in, log) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// drain copies channel lines to out. Idle timeouts are the normal quiet
// state of a serial line and are skipped; end-of-stream ends the bridge.
func drain(ctx context.Context, ch transfer.Channel, out io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := ch.ReadLine()
		if err != nil {
			if errors.Is(err, transfer.ErrReadTimeout) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("bridge read: %w", err)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("bridge echo: %w", err)
		}
	}
}

// forward writes each input line to the channel, LF-terminated. The scan
// runs in its own goroutine so a terminal with no pending input cannot
// stall shutdown; a pump blocked on a read the process is abandoning is
// reaped at exit.
func forward(ctx context.Context, ch transfer.Channel, in io.Reader, log zerolog.Logger) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("bridge input: %w", err)
			}
			return io.EOF
		case line := <-lines:
			if _, err := io.WriteString(ch, line+"\n"); err != nil {
				return fmt.Errorf("bridge write: %w", err)
			}
			log.Debug().Str("line", line).Msg("forwarded")
		}
	}
}
