package infrastructure

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordingNotifier(cfg domain.NotificationConfig) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	n := NewNotificationService(&cfg, zap.NewNop())
	n.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return nil
	}
	return n, &calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := newRecordingNotifier(domain.NotificationConfig{Enabled: false, Method: "notify-send"})
	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := newRecordingNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"})
	n.NotifyJobCompleted("https://example.com/v", domain.JobResult{Success: true, Title: "My Video"})

	assert.Equal(t, []recordedCommand{{name: "notify-send", args: []string{"Download Completed", "Saved: My Video"}}}, *calls)
}

func TestNotificationService_OsascriptEscapes(t *testing.T) {
	n, calls := newRecordingNotifier(domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true})
	assert.NoError(t, n.Send(`Say "hi"`, `back\slash`))

	if assert.Len(t, *calls, 1) {
		c := (*calls)[0]
		assert.Equal(t, "osascript", c.name)
		assert.Equal(t, "-e", c.args[0])
		assert.Equal(t, `display notification "back\\slash" with title "Say \"hi\"" sound name "default"`, c.args[1])
	}
}

func TestNotificationService_FailureAndCancel(t *testing.T) {
	n, calls := newRecordingNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"})
	n.NotifyJobFailed("https://example.com/very/long/url/that/is/truncated", domain.JobResult{Cancelled: true, Message: "download cancelled"})
	n.NotifyJobFailed("u", domain.JobResult{Message: "yt-dlp exited with code 1"})

	if assert.Len(t, *calls, 2) {
		assert.Equal(t, "Download Cancelled", (*calls)[0].args[0])
		assert.True(t, strings.HasSuffix((*calls)[0].args[1], "(download cancelled)"))
		assert.Equal(t, "Download Failed", (*calls)[1].args[0])
	}
}

func TestNotificationService_RunError(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, zap.NewNop())
	n.run = func(string, ...string) error { return errors.New("not installed") }
	assert.Error(t, n.Send("t", "m"))
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := newRecordingNotifier(domain.NotificationConfig{Enabled: true, Method: "pigeon"})
	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}
