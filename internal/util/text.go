package util

import (
	"github.com/mattn/go-runewidth"
)

// Fit pads or truncates s to exactly width terminal cells, so status bar
// segments keep their columns regardless of content.
func Fit(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
