package serialport

import (
	"errors"
	"path/filepath"
	"sort"
)

// candidatePatterns lists device paths worth probing, most specific first:
// the Pi's primary UART alias, then USB serial adapters, then CDC-ACM
// devices. Within a pattern, the lowest-numbered device wins.
var candidatePatterns = []string{
	"/dev/serial0",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
}

// ErrNoPort means no candidate device path exists on this machine.
var ErrNoPort = errors.New("no serial device found")

// Discover returns the first present candidate device path. It only probes
// the filesystem; whether the device can actually be opened is Open's
// business.
func Discover() (string, error) {
	return discover(filepath.Glob)
}

func discover(glob func(pattern string) ([]string, error)) (string, error) {
	for _, pattern := range candidatePatterns {
		matches, err := glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], nil
	}
	return "", ErrNoPort
}
