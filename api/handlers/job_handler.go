package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	jobs   *app.JobManager
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs *app.JobManager, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	var req domain.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		if rec == nil {
			if errors.Is(err, domain.ErrInvalidRequest) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			respondError(c, err)
			return
		}
		h.logger.Warn("Job did not start", zap.String("id", rec.ID), zap.Error(err))
		c.Error(err)
		c.JSON(spawnStatus(err), gin.H{"id": rec.ID, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": rec.ID})
}

func spawnStatus(err error) int {
	if errors.Is(err, domain.ErrToolNotFound) {
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

// Get handles GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	rec, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	filters := make(map[string]interface{})
	for _, key := range []string{"status", "mode", "url"} {
		if v := c.Query(key); v != "" {
			filters[key] = v
		}
	}

	jobs, err := h.jobs.List(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":    jobs,
		"count":   len(jobs),
		"running": h.jobs.Running(),
	})
}

// Stats handles GET /api/v1/jobs/stats
func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := h.jobs.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cancel handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.jobs.Cancel(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}
