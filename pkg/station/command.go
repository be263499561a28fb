package station

import (
	"strconv"
	"strings"
)

// Tunables are the dispatch parameters safe to change while the loop runs:
// the trigger word and the per-field fallbacks.
type Tunables struct {
	Trigger string
	Width   int
	Quality int
}

// Command is a parsed trigger line with both fields resolved.
type Command struct {
	Width   int
	Quality int
}

// ParseWarning records a field that fell back to its default.
type ParseWarning struct {
	Field string
	Value string
}

// ParseCommand decides whether line is a capture command. The first token
// must equal the trigger word, compared case-insensitively; any other line
// reports ok == false and is the caller's to ignore. The optional second
// and third tokens are the target width (a positive integer) and quality;
// each falls back to its default independently when it does not parse,
// with a warning naming the field. Tokens past the third are ignored.
func ParseCommand(line string, t Tunables) (cmd Command, warnings []ParseWarning, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.EqualFold(fields[0], t.Trigger) {
		return Command{}, nil, false
	}

	cmd = Command{Width: t.Width, Quality: t.Quality}
	if len(fields) > 1 {
		if w, err := strconv.Atoi(fields[1]); err == nil && w > 0 {
			cmd.Width = w
		} else {
			warnings = append(warnings, ParseWarning{Field: "width", Value: fields[1]})
		}
	}
	if len(fields) > 2 {
		if q, err := strconv.Atoi(fields[2]); err == nil {
			cmd.Quality = q
		} else {
			warnings = append(warnings, ParseWarning{Field: "quality", Value: fields[2]})
		}
	}
	return cmd, warnings, true
}
