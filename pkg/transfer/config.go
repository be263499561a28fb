package transfer

import (
	"errors"
	"time"
)

const (
	// DefaultChunkSize is the payload slice the peer device can buffer
	// between acknowledgements.
	DefaultChunkSize = 256

	// MaxChunkSize bounds the per-chunk buffer on both endpoints.
	MaxChunkSize = 64 * 1024

	// DefaultHandshakeTimeout is how long each protocol phase may wait
	// for its token before the transfer is abandoned.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config holds the tunables shared by both sides of the protocol.
// Both endpoints must agree on ChunkSize; the wire carries no framing
// for chunks beyond the byte count announced in the header.
type Config struct {
	ChunkSize        int
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the settings the peer firmware is built around.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        DefaultChunkSize,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.ChunkSize > MaxChunkSize {
		return errors.New("chunk_size exceeds maximum")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake_timeout must be positive")
	}
	return nil
}
