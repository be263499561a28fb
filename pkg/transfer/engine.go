package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Outbound is one payload queued for sending. ID is an opaque token chosen
// by the producer (typically a timestamp); it must survive a header line
// unescaped.
type Outbound struct {
	ID      string
	Payload []byte
}

// Engine drives the sending side of the stop-and-wait protocol. A transfer
// is a single attempt: any phase timing out abandons it, and the engine
// never retransmits. At most one chunk is ever in flight.
type Engine struct {
	cfg      Config
	waiter   *Waiter
	log      zerolog.Logger
	listener StatusListener
}

// NewEngine validates cfg and returns an engine. listener may be nil.
func NewEngine(cfg Config, log zerolog.Logger, listener StatusListener) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transfer config: %w", err)
	}
	if listener == nil {
		listener = NopListener{}
	}
	return &Engine{
		cfg:      cfg,
		waiter:   NewWaiter(log),
		log:      log,
		listener: listener,
	}, nil
}

// Send runs one complete transfer over ch: header, readiness token, the
// payload chunk by chunk with per-chunk acknowledgement, and the final
// completion token. Each wait is bounded by the configured handshake
// timeout; on expiry Send returns a *TimeoutError naming the phase and
// writes nothing further. A cancelled context aborts at the next phase
// boundary with ctx.Err().
func (e *Engine) Send(ctx context.Context, ch Channel, out Outbound) (Stats, error) {
	if !validID(out.ID) {
		return Stats{}, fmt.Errorf("%w: %q", ErrInvalidID, out.ID)
	}

	start := time.Now()
	total := len(out.Payload)
	e.log.Debug().Str("id", out.ID).Int("total", total).Msg("announcing transfer")
	if _, err := io.WriteString(ch, BuildHeader(out.ID, total)); err != nil {
		return Stats{}, fmt.Errorf("write header: %w", err)
	}

	e.listener.OnPhase(out.ID, PhaseReady)
	if !e.waiter.Await(ctx, ch, TokenReady, e.cfg.HandshakeTimeout) {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		return Stats{}, &TimeoutError{Phase: PhaseReady}
	}

	chunker, err := NewChunker(out.Payload, e.cfg.ChunkSize)
	if err != nil {
		return Stats{}, err
	}
	var sent, chunks int
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		if _, err := ch.Write(chunk.Data); err != nil {
			return Stats{}, fmt.Errorf("write chunk at offset %d: %w", chunk.Offset, err)
		}
		e.listener.OnPhase(out.ID, PhaseAck)
		if !e.waiter.Await(ctx, ch, TokenAck, e.cfg.HandshakeTimeout) {
			if err := ctx.Err(); err != nil {
				return Stats{}, err
			}
			return Stats{}, &TimeoutError{Phase: PhaseAck, Offset: chunk.Offset}
		}
		sent += len(chunk.Data)
		chunks++
		e.listener.OnProgress(out.ID, sent, total)
	}

	e.listener.OnPhase(out.ID, PhaseDone)
	if !e.waiter.Await(ctx, ch, TokenDone, e.cfg.HandshakeTimeout) {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		return Stats{}, &TimeoutError{Phase: PhaseDone}
	}

	stats := Stats{Bytes: sent, Chunks: chunks, Elapsed: time.Since(start)}
	e.listener.OnDone(out.ID, stats)
	return stats, nil
}
