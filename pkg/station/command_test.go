package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultTunables() Tunables {
	return Tunables{Trigger: "foto", Width: 1024, Quality: 5}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name       string
		line       string
		want       Command
		wantFields []string // warned fields, in order
		wantOK     bool
	}{
		{
			name:   "bare trigger",
			line:   "foto",
			want:   Command{Width: 1024, Quality: 5},
			wantOK: true,
		},
		{
			name:   "trigger is case-insensitive",
			line:   "FOTO",
			want:   Command{Width: 1024, Quality: 5},
			wantOK: true,
		},
		{
			name:   "mixed case trigger",
			line:   "FoTo 800",
			want:   Command{Width: 800, Quality: 5},
			wantOK: true,
		},
		{
			name:   "width and quality",
			line:   "foto 640 8",
			want:   Command{Width: 640, Quality: 8},
			wantOK: true,
		},
		{
			name:       "bad quality falls back alone",
			line:       "foto 640 abc",
			want:       Command{Width: 640, Quality: 5},
			wantFields: []string{"quality"},
			wantOK:     true,
		},
		{
			name:       "bad width falls back alone",
			line:       "foto abc 8",
			want:       Command{Width: 1024, Quality: 8},
			wantFields: []string{"width"},
			wantOK:     true,
		},
		{
			name:       "both fields bad",
			line:       "foto x y",
			want:       Command{Width: 1024, Quality: 5},
			wantFields: []string{"width", "quality"},
			wantOK:     true,
		},
		{
			name:       "zero width is not positive",
			line:       "foto 0",
			want:       Command{Width: 1024, Quality: 5},
			wantFields: []string{"width"},
			wantOK:     true,
		},
		{
			name:       "negative width is not positive",
			line:       "foto -640",
			want:       Command{Width: 1024, Quality: 5},
			wantFields: []string{"width"},
			wantOK:     true,
		},
		{
			name:   "extra tokens ignored",
			line:   "foto 640 8 now please",
			want:   Command{Width: 640, Quality: 8},
			wantOK: true,
		},
		{
			name:   "surrounding whitespace",
			line:   "   foto 640  ",
			want:   Command{Width: 640, Quality: 5},
			wantOK: true,
		},
		{
			name:   "unrelated line",
			line:   "hello",
			wantOK: false,
		},
		{
			name:   "trigger as substring does not match",
			line:   "fotos",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, warnings, ok := ParseCommand(tc.line, defaultTunables())
			assert.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.want, cmd)

			var fields []string
			for _, w := range warnings {
				fields = append(fields, w.Field)
			}
			assert.Equal(t, tc.wantFields, fields)
		})
	}
}

func TestParseCommand_CustomTrigger(t *testing.T) {
	tun := Tunables{Trigger: "snap", Width: 320, Quality: 7}

	cmd, warnings, ok := ParseCommand("SNAP 100", tun)
	assert.True(t, ok)
	assert.Empty(t, warnings)
	assert.Equal(t, Command{Width: 100, Quality: 7}, cmd)

	_, _, ok = ParseCommand("foto", tun)
	assert.False(t, ok, "the old trigger must not fire once retuned")
}

func TestParseCommand_WarningCarriesOffendingValue(t *testing.T) {
	_, warnings, ok := ParseCommand("foto 640 abc", defaultTunables())
	assert.True(t, ok)
	assert.Equal(t, []ParseWarning{{Field: "quality", Value: "abc"}}, warnings)
}
