package infrastructure

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// SetRunner replaces the command runner, e.g. to silence notifications in tests
func (n *NotificationService) SetRunner(run func(name string, args ...string) error) {
	n.run = run
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		err = n.run("osascript", "-e", appleScript(title, message, n.config.Sound))
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyJobCompleted sends notification when a job finishes successfully
func (n *NotificationService) NotifyJobCompleted(url string, result domain.JobResult) {
	name := result.Title
	if name == "" && result.Filename != "" {
		name = filepath.Base(result.Filename)
	}
	if name == "" {
		name = truncateString(url, 30)
	}
	n.Send("Download Completed", fmt.Sprintf("Saved: %s", truncateString(name, 60)))
}

// NotifyJobFailed sends notification when a job fails or is cancelled
func (n *NotificationService) NotifyJobFailed(url string, result domain.JobResult) {
	title := "Download Failed"
	if result.Cancelled {
		title = "Download Cancelled"
	}
	n.Send(title, fmt.Sprintf("%s (%s)", truncateString(url, 30), result.Message))
}

// NotifyBinaryInstalled sends notification when a managed tool was installed or updated
func (n *NotificationService) NotifyBinaryInstalled(name domain.BinaryName) {
	n.Send("Tools Updated", fmt.Sprintf("%s is ready", name))
}

// appleScript builds a display notification statement with quoted strings escaped.
func appleScript(title, message string, sound bool) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	if sound {
		script += ` sound name "default"`
	}
	return script
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
