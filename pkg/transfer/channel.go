package transfer

import (
	"errors"
	"io"
)

// Channel is the duplex byte link between the two endpoints of a transfer.
// Control tokens travel as LF-terminated text lines, payload chunks as raw
// bytes, both over the same stream. Implementations are not safe for
// concurrent readers.
type Channel interface {
	io.ReadWriter

	// ReadLine blocks until a complete LF-terminated line arrives or the
	// channel's idle read timeout elapses, in which case it returns
	// ErrReadTimeout. The returned line carries no terminator. Partial
	// input stays buffered for the next call.
	ReadLine() (string, error)

	// ResetInput discards any inbound bytes not yet consumed.
	ResetInput() error
}

// ErrReadTimeout reports that a read saw no complete data within the
// channel's idle timeout. It is a per-read condition, not a protocol
// failure; callers decide when to give up.
var ErrReadTimeout = errors.New("read timeout")
