package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware that logs every request. Server errors
// are also written to the error log.
func Logger(logAdapter *logger.LoggerAdapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			logAdapter.LogError(logger.CategoryError, "HTTP error response", fields...)
		case statusCode >= 400:
			logAdapter.General().Warn("HTTP request", fields...)
		default:
			logAdapter.General().Debug("HTTP request", fields...)
		}
	}
}
