package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter gives services one handle for both the console logger and
// the categorized file loggers. Without a MultiLogger every category falls
// back to the general logger.
type LoggerAdapter struct {
	multiLogger *MultiLogger
	general     *zap.Logger
}

// NewLoggerAdapter creates a new logger adapter
func NewLoggerAdapter(general *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	return &LoggerAdapter{
		multiLogger: multiLogger,
		general:     general,
	}
}

// NewSingleLoggerAdapter creates an adapter without category files
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{general: logger}
}

// General returns the console logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.general
}

// Provision returns the provisioning logger
func (la *LoggerAdapter) Provision() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Provision()
	}
	return la.general
}

// Job returns the job logger
func (la *LoggerAdapter) Job() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Job()
	}
	return la.general
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Error()
	}
	return la.general
}

// LogEvent writes a lifecycle event to the category file and the console
func (la *LoggerAdapter) LogEvent(category LogCategory, event string, fields ...zap.Field) {
	if la.multiLogger != nil {
		la.multiLogger.GetLogger(category).Info(event, fields...)
	}
	la.general.Info(event, append(fields, zap.String("category", string(category)))...)
}

// LogError logs an error to the category log, the error log and the console
func (la *LoggerAdapter) LogError(category LogCategory, msg string, fields ...zap.Field) {
	if la.multiLogger != nil {
		if category != CategoryError {
			la.multiLogger.GetLogger(category).Error(msg, fields...)
		}
		la.multiLogger.LogAppError(msg, append(fields, zap.String("category", string(category)))...)
	}
	la.general.Error(msg, fields...)
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		la.multiLogger.Sync()
	}
	return la.general.Sync()
}

// GetMultiLogger returns the underlying multi-logger, which may be nil
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
