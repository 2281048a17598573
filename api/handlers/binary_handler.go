package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

// BinaryHandler serves the managed-tool endpoints
type BinaryHandler struct {
	svc *app.ProvisioningService
}

// NewBinaryHandler creates a new binary handler
func NewBinaryHandler(svc *app.ProvisioningService) *BinaryHandler {
	return &BinaryHandler{svc: svc}
}

// Check handles GET /api/v1/binaries
func (h *BinaryHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Check())
}

// Versions handles GET /api/v1/binaries/versions
func (h *BinaryHandler) Versions(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Versions(c.Request.Context()))
}

// Latest handles GET /api/v1/binaries/latest
func (h *BinaryHandler) Latest(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Latest(c.Request.Context()))
}

// Encoders handles GET /api/v1/binaries/encoders
func (h *BinaryHandler) Encoders(c *gin.Context) {
	encoders, err := h.svc.Encoders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"encoders": encoders})
}

// Ensure handles POST /api/v1/binaries/:name/ensure
func (h *BinaryHandler) Ensure(c *gin.Context) {
	name, ok := h.binaryName(c)
	if !ok {
		return
	}

	outcomes, err := h.svc.Ensure(c.Request.Context(), name)
	if err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error(), "outcomes": outcomes})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "outcomes": outcomes})
}

// Update handles POST /api/v1/binaries/:name/update
func (h *BinaryHandler) Update(c *gin.Context) {
	name, ok := h.binaryName(c)
	if !ok {
		return
	}

	if err := h.svc.Update(c.Request.Context(), name); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VideoInfoRequest is the body of POST /api/v1/info
type VideoInfoRequest struct {
	URL string `json:"url" binding:"required"`
}

// VideoInfo handles POST /api/v1/info
func (h *BinaryHandler) VideoInfo(c *gin.Context) {
	var req VideoInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := h.svc.VideoInfo(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *BinaryHandler) binaryName(c *gin.Context) (domain.BinaryName, bool) {
	name, err := domain.ParseBinaryName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return "", false
	}
	return name, true
}
