// Package serialport implements the transfer channel over a local serial
// device and the discovery of candidate device paths.
package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/otxo/fotolink/pkg/transfer"
)

// pollInterval is the blocking window of a single device read. ReadLine
// and Read layer their own wall-clock idle deadline on top of it.
const pollInterval = 100 * time.Millisecond

// Config holds the line settings. Framing is fixed at 8N1, which is what
// the peer firmware speaks.
type Config struct {
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig matches the peer firmware defaults.
func DefaultConfig() Config {
	return Config{
		Baud:        115200,
		ReadTimeout: time.Second,
	}
}

// Validate checks the line settings.
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return errors.New("baud must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	return nil
}

// device is the slice of the serial driver the wrapper relies on.
type device interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Port adapts a serial device to the transfer.Channel contract: line reads
// with an idle deadline over the same stream that carries raw chunk bytes.
// A Port serves one goroutine at a time.
type Port struct {
	name    string
	port    device
	idle    time.Duration
	pending []byte
	rbuf    [256]byte
}

// Open opens the named device with cfg and clean buffers. Failure to open
// is the fatal "channel unavailable" condition; callers exit rather than
// retry.
func Open(name string, cfg Config) (*Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("serial config: %w", err)
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	dev, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := dev.SetReadTimeout(pollInterval); err != nil {
		dev.Close()
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	p := &Port{name: name, port: dev, idle: cfg.ReadTimeout}
	if err := p.ResetInput(); err != nil {
		dev.Close()
		return nil, err
	}
	if err := dev.ResetOutputBuffer(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("reset output %s: %w", name, err)
	}
	return p, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// ReadLine reads up to the next LF, excluding it. With no complete line
// inside the idle window it returns transfer.ErrReadTimeout; whatever
// partial input arrived stays buffered for the next call.
func (p *Port) ReadLine() (string, error) {
	deadline := time.Now().Add(p.idle)
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := string(p.pending[:i])
			p.pending = append(p.pending[:0], p.pending[i+1:]...)
			return line, nil
		}
		if !time.Now().Before(deadline) {
			return "", transfer.ErrReadTimeout
		}
		n, err := p.port.Read(p.rbuf[:])
		if n > 0 {
			p.pending = append(p.pending, p.rbuf[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}
	}
}

// Read serves buffered bytes first, then the device. An idle window with
// no data at all yields transfer.ErrReadTimeout.
func (p *Port) Read(b []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = append(p.pending[:0], p.pending[n:]...)
		return n, nil
	}
	deadline := time.Now().Add(p.idle)
	for {
		n, err := p.port.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		if !time.Now().Before(deadline) {
			return 0, transfer.ErrReadTimeout
		}
	}
}

// Write passes through to the device. The driver flushes on return, so a
// completed Write means the bytes left the process.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// ResetInput drops both the wrapper's buffer and the driver's.
func (p *Port) ResetInput() error {
	p.pending = p.pending[:0]
	if err := p.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input %s: %w", p.name, err)
	}
	return nil
}

// Close releases the device.
func (p *Port) Close() error {
	return p.port.Close()
}
