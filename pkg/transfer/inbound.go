package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Header is a parsed transfer announcement.
type Header struct {
	ID    string
	Total int
}

// Inbound drives the consuming side of the protocol: it answers a header
// with READY, acknowledges every chunk, and closes the exchange with DONE.
type Inbound struct {
	cfg      Config
	log      zerolog.Logger
	listener StatusListener
}

// NewInbound validates cfg and returns an inbound session driver.
func NewInbound(cfg Config, log zerolog.Logger, listener StatusListener) (*Inbound, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transfer config: %w", err)
	}
	if listener == nil {
		listener = NopListener{}
	}
	return &Inbound{cfg: cfg, log: log, listener: listener}, nil
}

// Receive blocks until a parseable header line arrives, then accepts one
// complete transfer, streaming the payload into w. Lines that do not parse
// as headers are ignored. A chunk not fully delivered within the handshake
// timeout aborts the session with a *TimeoutError; the caller owns any
// partial output written to w.
func (in *Inbound) Receive(ctx context.Context, ch Channel, w io.Writer) (Header, Stats, error) {
	var hdr Header
	for {
		if err := ctx.Err(); err != nil {
			return Header{}, Stats{}, err
		}
		line, err := ch.ReadLine()
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				continue
			}
			return Header{}, Stats{}, fmt.Errorf("await header: %w", err)
		}
		id, total, err := ParseHeader(line)
		if err != nil {
			in.log.Debug().Str("line", line).Err(err).Msg("ignoring non-header line")
			continue
		}
		hdr = Header{ID: id, Total: total}
		break
	}

	start := time.Now()
	in.log.Debug().Str("id", hdr.ID).Int("total", hdr.Total).Msg("accepting transfer")
	if err := in.reply(ch, TokenReady); err != nil {
		return hdr, Stats{}, err
	}

	buf := make([]byte, in.cfg.ChunkSize)
	var received, chunks int
	for received < hdr.Total {
		if err := ctx.Err(); err != nil {
			return hdr, Stats{}, err
		}
		n := in.cfg.ChunkSize
		if remaining := hdr.Total - received; remaining < n {
			n = remaining
		}
		in.listener.OnPhase(hdr.ID, PhaseData)
		if err := in.readChunk(ctx, ch, buf[:n]); err != nil {
			if errors.Is(err, ErrReadTimeout) {
				return hdr, Stats{}, &TimeoutError{Phase: PhaseData, Offset: received}
			}
			return hdr, Stats{}, fmt.Errorf("read chunk at offset %d: %w", received, err)
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return hdr, Stats{}, fmt.Errorf("store chunk at offset %d: %w", received, err)
		}
		if err := in.reply(ch, TokenAck); err != nil {
			return hdr, Stats{}, err
		}
		received += n
		chunks++
		in.listener.OnProgress(hdr.ID, received, hdr.Total)
	}

	if err := in.reply(ch, TokenDone); err != nil {
		return hdr, Stats{}, err
	}
	stats := Stats{Bytes: received, Chunks: chunks, Elapsed: time.Since(start)}
	in.listener.OnDone(hdr.ID, stats)
	return hdr, stats, nil
}

// reply writes one control token line.
func (in *Inbound) reply(ch Channel, token string) error {
	if _, err := io.WriteString(ch, token+"\n"); err != nil {
		return fmt.Errorf("send %s: %w", token, err)
	}
	return nil
}

// readChunk fills buf from the channel, tolerating idle timeouts until the
// handshake deadline. The producer sends nothing else between our ACKs, so
// every byte read here belongs to the chunk.
func (in *Inbound) readChunk(ctx context.Context, ch Channel, buf []byte) error {
	deadline := time.Now().Add(in.cfg.HandshakeTimeout)
	off := 0
	for off < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrReadTimeout
		}
		n, err := ch.Read(buf[off:])
		off += n
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}
