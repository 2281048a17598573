package domain

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Binaries     BinariesConfig     `mapstructure:"binaries"`
	Download     DownloadConfig     `mapstructure:"download"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BinariesConfig controls where managed tools live and how they are fetched
type BinariesConfig struct {
	Dir            string        `mapstructure:"dir"`
	FFmpegVersion  string        `mapstructure:"ffmpeg_version"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	VersionTimeout time.Duration `mapstructure:"version_timeout"`
}

// DownloadConfig contains job-related configuration
type DownloadConfig struct {
	DefaultDir string `mapstructure:"default_dir"`
	LogsDir    string `mapstructure:"logs_dir"`
}

// DatabaseConfig contains job history storage configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DataDir returns the application data root that holds bin/, logs/ and the database.
func (c *Config) DataDir() string {
	return filepath.Dir(c.Binaries.Dir)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8686,
		},
		Binaries: BinariesConfig{
			Dir:            "$HOME/.local/share/ytfetch/bin",
			FFmpegVersion:  "6.1",
			HTTPTimeout:    10 * time.Minute,
			UserAgent:      "ytfetch/1.0",
			VersionTimeout: 10 * time.Second,
		},
		Download: DownloadConfig{
			DefaultDir: "$HOME/Downloads",
			LogsDir:    "$HOME/.local/share/ytfetch/logs",
		},
		Database: DatabaseConfig{
			Path: "$HOME/.local/share/ytfetch/jobs.db",
		},
		Notification: NotificationConfig{
			Enabled: true,
			Sound:   false,
			Method:  defaultNotificationMethod(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

func defaultNotificationMethod() string {
	if runtime.GOOS == "darwin" {
		return "osascript"
	}
	return "notify-send"
}
