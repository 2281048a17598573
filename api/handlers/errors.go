package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

// statusFor maps the domain error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrToolNotFound):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedPlatform):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
