package transfer

import (
	"time"

	"github.com/rs/zerolog"
)

// Phase identifies the handshake step a transfer is in. The sending side
// passes through ready, ack and done; the receiving side additionally
// spends time in data while a chunk is on the wire.
type Phase int

const (
	// PhaseReady covers the window between the header and the consumer's
	// readiness token.
	PhaseReady Phase = iota
	// PhaseAck covers a written chunk awaiting its acknowledgement.
	PhaseAck
	// PhaseDone covers the window after the final acknowledged chunk.
	PhaseDone
	// PhaseData covers the consumer reading a chunk's bytes.
	PhaseData
)

// String returns the wire token the phase waits on, lower-cased for logs.
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseAck:
		return "ack"
	case PhaseDone:
		return "done"
	case PhaseData:
		return "data"
	default:
		return "unknown"
	}
}

// Stats summarizes a finished (or aborted) transfer.
type Stats struct {
	Bytes   int
	Chunks  int
	Elapsed time.Duration
}

// StatusListener receives transfer lifecycle events. Callbacks run on the
// transferring goroutine and must not block.
type StatusListener interface {
	// OnPhase fires when the transfer enters a waiting phase.
	OnPhase(id string, phase Phase)
	// OnProgress fires after each acknowledged chunk.
	OnProgress(id string, sent, total int)
	// OnDone fires once on success.
	OnDone(id string, stats Stats)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) OnPhase(string, Phase)       {}
func (NopListener) OnProgress(string, int, int) {}
func (NopListener) OnDone(string, Stats)        {}

// LogListener mirrors transfer events into a structured log.
type LogListener struct {
	Log zerolog.Logger
}

func (l LogListener) OnPhase(id string, phase Phase) {
	l.Log.Debug().Str("id", id).Stringer("phase", phase).Msg("awaiting token")
}

func (l LogListener) OnProgress(id string, sent, total int) {
	l.Log.Debug().Str("id", id).Int("sent", sent).Int("total", total).Msg("chunk acknowledged")
}

func (l LogListener) OnDone(id string, stats Stats) {
	l.Log.Info().
		Str("id", id).
		Int("bytes", stats.Bytes).
		Int("chunks", stats.Chunks).
		Dur("elapsed", stats.Elapsed).
		Msg("transfer complete")
}
