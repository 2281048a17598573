package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/internal/platform"
)

// Version is reported by /health
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	provisioning *app.ProvisioningService
	jobs         *app.JobManager

	once sync.Once
	host *platform.Info
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(provisioning *app.ProvisioningService, jobs *app.JobManager) *HealthHandler {
	return &HealthHandler{
		provisioning: provisioning,
		jobs:         jobs,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status      string         `json:"status"`
	Version     string         `json:"version"`
	Host        *platform.Info `json:"host,omitempty"`
	RunningJobs int            `json:"running_jobs"`
	FetchTool   bool           `json:"fetch_tool_present"`
	Transcode   bool           `json:"transcode_tool_present"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	check := h.provisioning.Check()
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     Version,
		Host:        h.hostInfo(),
		RunningJobs: len(h.jobs.Running()),
		FetchTool:   check.FetchToolPresent,
		Transcode:   check.TranscodeToolPresent,
	})
}

// Ready handles GET /ready. The server can accept jobs once yt-dlp is installed.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.provisioning.Check().FetchToolPresent {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "yt-dlp is not installed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// hostInfo is detected once; it does not change while the process runs.
func (h *HealthHandler) hostInfo() *platform.Info {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if info, err := platform.Detect(ctx); err == nil {
			h.host = info
		}
	})
	return h.host
}
