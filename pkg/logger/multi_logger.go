package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryProvision LogCategory = "provision" // Binary install/update lifecycle (JSON)
	CategoryJob       LogCategory = "job"       // Download job lifecycle (JSON)
	CategoryError     LogCategory = "error"     // Application errors (JSON)
	CategoryDownload  LogCategory = "download"  // Raw yt-dlp output, written by the orchestrator
)

// Categories lists every category the log reader can serve.
var Categories = []LogCategory{CategoryProvision, CategoryJob, CategoryError, CategoryDownload}

// ValidCategory reports whether c is a known category.
func ValidCategory(c LogCategory) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger provides categorized logging with one JSON file per category
// and day. Files roll over on the first write after midnight.
// Raw download output does not go through here; see CategoryDownload.
type MultiLogger struct {
	config MultiLoggerConfig
	level  zapcore.Level

	mu          sync.RWMutex
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		config: config,
		level:  ParseLevel(config.Level),
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.open(time.Now().Format("20060102")); err != nil {
		return nil, err
	}
	return ml, nil
}

// open creates the per-category loggers for date. Caller holds mu.
func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger)
	files := make(map[LogCategory]*os.File)

	for _, category := range []LogCategory{CategoryProvision, CategoryJob, CategoryError} {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}

		path := filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}

		files[category] = file
		loggers[category] = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(file), level))
	}

	old := ml.files
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date

	for _, f := range old {
		f.Close()
	}
	return nil
}

func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""
	return zapcore.NewJSONEncoder(encoderConfig)
}

// rotate reopens the category files when the day has changed.
func (ml *MultiLogger) rotate() {
	today := time.Now().Format("20060102")

	ml.mu.RLock()
	current := ml.currentDate
	ml.mu.RUnlock()
	if current == today {
		return
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.currentDate == today {
		return
	}
	for _, l := range ml.loggers {
		l.Sync()
	}
	if err := ml.open(today); err != nil {
		// keep writing to yesterday's files
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.rotate()

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// Provision returns the provisioning logger
func (ml *MultiLogger) Provision() *zap.Logger {
	return ml.GetLogger(CategoryProvision)
}

// Job returns the job logger
func (ml *MultiLogger) Job() *zap.Logger {
	return ml.GetLogger(CategoryJob)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogProvisionEvent records a binary install or update step
func (ml *MultiLogger) LogProvisionEvent(event string, fields ...zap.Field) {
	ml.Provision().Info(event, fields...)
}

// LogJobEvent records a job lifecycle step
func (ml *MultiLogger) LogJobEvent(event string, fields ...zap.Field) {
	ml.Job().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var err error
	for _, logger := range ml.loggers {
		err = multierr.Append(err, logger.Sync())
	}
	return err
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var err error
	for category, logger := range ml.loggers {
		err = multierr.Append(err, logger.Sync())
		if f, ok := ml.files[category]; ok {
			err = multierr.Append(err, f.Close())
		}
	}
	ml.files = nil
	return err
}
