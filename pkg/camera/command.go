package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// CommandBackend captures stills by invoking the system capture tool
// (rpicam-still, or libcamera-still on older images).
type CommandBackend struct {
	command string
	warmup  time.Duration
}

// NewCommandBackend returns a backend invoking command with the given
// sensor warmup time.
func NewCommandBackend(command string, warmup time.Duration) *CommandBackend {
	return &CommandBackend{command: command, warmup: warmup}
}

// CaptureStill writes one full-resolution JPEG to dst.
func (b *CommandBackend) CaptureStill(ctx context.Context, dst string) error {
	args := []string{
		"-n", // headless, no preview window
		"-t", strconv.FormatInt(b.warmup.Milliseconds(), 10),
		"-o", dst,
	}
	cmd := exec.CommandContext(ctx, b.command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", b.command, err, bytes.TrimSpace(out))
	}
	return nil
}
