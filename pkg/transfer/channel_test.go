package transfer

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// scriptChannel feeds the code under test a fixed sequence of inbound
// lines and raw bytes while recording everything written to it. Once the
// script runs dry, reads behave like an idle serial port unless eof is set.
type scriptChannel struct {
	mu     sync.Mutex
	lines  []string
	loop   bool // repeat the last line forever
	eof    bool
	data   bytes.Buffer
	wrote  bytes.Buffer
	resets int
}

func newScriptChannel(lines ...string) *scriptChannel {
	return &scriptChannel{lines: lines}
}

func (c *scriptChannel) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		if c.eof {
			return "", io.EOF
		}
		time.Sleep(time.Millisecond)
		return "", ErrReadTimeout
	}
	line := c.lines[0]
	if !(c.loop && len(c.lines) == 1) {
		c.lines = c.lines[1:]
	} else {
		time.Sleep(time.Millisecond)
	}
	return line, nil
}

func (c *scriptChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.Len() == 0 {
		if c.eof {
			return 0, io.EOF
		}
		time.Sleep(time.Millisecond)
		return 0, ErrReadTimeout
	}
	return c.data.Read(p)
}

func (c *scriptChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrote.Write(p)
}

func (c *scriptChannel) ResetInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	return nil
}

func (c *scriptChannel) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.wrote.Bytes())
}

// pipeChannel adapts one end of a net.Pipe to the Channel contract so the
// outbound engine and an inbound session can run against each other in
// memory. Deadline errors surface as ErrReadTimeout, like a real port.
type pipeChannel struct {
	conn    net.Conn
	idle    time.Duration
	pending []byte
	buf     [512]byte
}

func newPipePair(idle time.Duration) (*pipeChannel, *pipeChannel) {
	a, b := net.Pipe()
	return &pipeChannel{conn: a, idle: idle}, &pipeChannel{conn: b, idle: idle}
}

func (p *pipeChannel) ReadLine() (string, error) {
	deadline := time.Now().Add(p.idle)
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := string(p.pending[:i])
			p.pending = append(p.pending[:0], p.pending[i+1:]...)
			return line, nil
		}
		if !time.Now().Before(deadline) {
			return "", ErrReadTimeout
		}
		p.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, err := p.conn.Read(p.buf[:])
		if n > 0 {
			p.pending = append(p.pending, p.buf[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return "", err
		}
	}
}

func (p *pipeChannel) Read(b []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = append(p.pending[:0], p.pending[n:]...)
		return n, nil
	}
	p.conn.SetReadDeadline(time.Now().Add(p.idle))
	n, err := p.conn.Read(b)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		if n > 0 {
			return n, nil
		}
		return 0, ErrReadTimeout
	}
	return n, err
}

func (p *pipeChannel) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

func (p *pipeChannel) ResetInput() error {
	p.pending = p.pending[:0]
	return nil
}

func (p *pipeChannel) Close() error {
	return p.conn.Close()
}

// recordListener captures status callbacks for assertions.
type recordListener struct {
	mu       sync.Mutex
	phases   []Phase
	progress [][2]int
	done     []Stats
}

func (r *recordListener) OnPhase(_ string, phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func (r *recordListener) OnProgress(_ string, sent, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{sent, total})
}

func (r *recordListener) OnDone(_ string, stats Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, stats)
}
