package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "''"},
		{"plain flag", "--no-mtime", "--no-mtime"},
		{"plain path", "/opt/ytfetch/bin/yt-dlp", "/opt/ytfetch/bin/yt-dlp"},
		{"output template", "/tmp/%(title)s.%(ext)s", "'/tmp/%(title)s.%(ext)s'"},
		{"format selector", "bestvideo[height<=1080]+bestaudio/best", "'bestvideo[height<=1080]+bestaudio/best'"},
		{"section", "*00:01:00 - 00:02:00", "'*00:01:00 - 00:02:00'"},
		{"single quote", "it's", `'it'"'"'s'`},
		{"query string", "https://example.com/watch?v=abc&t=10", "'https://example.com/watch?v=abc&t=10'"},
		{"dollar", "$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscape(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	got := ShellEscapeCommand("/data/my bin/yt-dlp",
		"https://example.com/v", "-o", "/tmp/%(title)s.%(ext)s", "--print", "after_move:filepath")

	assert.Equal(t,
		"'/data/my bin/yt-dlp' https://example.com/v -o '/tmp/%(title)s.%(ext)s' --print after_move:filepath",
		got)
}
