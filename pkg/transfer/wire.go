package transfer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Control tokens exchanged on the wire. Each token is sent as a single
// LF-terminated line; comparison on the receiving side is exact after
// trimming surrounding whitespace.
const (
	// TokenReady is sent by the consumer once it has parsed the header
	// and is prepared to take the first chunk.
	TokenReady = "READY"
	// TokenAck acknowledges one complete chunk.
	TokenAck = "ACK"
	// TokenDone confirms the consumer holds all announced bytes.
	TokenDone = "DONE"
)

// headerSeparator splits the transfer id from the byte count in a header
// line. Ids therefore must not contain it.
const headerSeparator = "|"

// BuildHeader renders the announcement line for a transfer: the opaque id,
// the separator, the total payload length in decimal, and a trailing LF.
// No other whitespace or fields.
func BuildHeader(id string, total int) string {
	return fmt.Sprintf("%s%s%d\n", id, headerSeparator, total)
}

// ParseHeader is the inverse of BuildHeader for a line already stripped of
// its terminator. Anything that is not exactly two fields with a
// non-negative decimal length is rejected.
func ParseHeader(line string) (id string, total int, err error) {
	line = strings.TrimSpace(line)
	id, length, found := strings.Cut(line, headerSeparator)
	if !found {
		return "", 0, errors.New("missing separator")
	}
	if !validID(id) {
		return "", 0, errors.New("invalid id field")
	}
	total, err = strconv.Atoi(length)
	if err != nil {
		return "", 0, fmt.Errorf("bad length field: %w", err)
	}
	if total < 0 {
		return "", 0, errors.New("negative length")
	}
	return id, total, nil
}

// validID reports whether id can travel inside a header line unescaped.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, headerSeparator+"\r\n")
}
