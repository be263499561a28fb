package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeTimeout is the sentinel every TimeoutError unwraps to.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrInvalidID rejects transfer ids that cannot travel in a header
	// line (empty, or containing the separator or a line break).
	ErrInvalidID = errors.New("invalid transfer id")
)

// TimeoutError reports which protocol phase gave up waiting. Offset is the
// payload position of the chunk in flight and is meaningful for PhaseAck
// and PhaseData only.
type TimeoutError struct {
	Phase  Phase
	Offset int
}

func (e *TimeoutError) Error() string {
	switch e.Phase {
	case PhaseReady:
		return "timeout waiting for " + TokenReady
	case PhaseAck:
		return fmt.Sprintf("timeout waiting for %s at offset %d", TokenAck, e.Offset)
	case PhaseDone:
		return "timeout waiting for " + TokenDone
	case PhaseData:
		return fmt.Sprintf("timeout reading chunk at offset %d", e.Offset)
	default:
		return ErrHandshakeTimeout.Error()
	}
}

// Unwrap lets errors.Is match ErrHandshakeTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrHandshakeTimeout
}
