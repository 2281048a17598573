package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytfetch-go/api/handlers"
	"github.com/yourusername/ytfetch-go/api/middleware"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/pkg/logger"
)

// Dependencies are the services the HTTP layer exposes
type Dependencies struct {
	Provisioning *app.ProvisioningService
	Jobs         *app.JobManager
	Hub          *app.EventHub
	LogReader    *logger.LogReader
	Logs         *logger.LoggerAdapter
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logs))
	router.Use(middleware.Recovery(deps.Logs))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Provisioning, deps.Jobs)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		binaryHandler := handlers.NewBinaryHandler(deps.Provisioning)
		binaries := v1.Group("/binaries")
		{
			binaries.GET("", binaryHandler.Check)
			binaries.GET("/versions", binaryHandler.Versions)
			binaries.GET("/latest", binaryHandler.Latest)
			binaries.GET("/encoders", binaryHandler.Encoders)
			binaries.POST("/:name/ensure", binaryHandler.Ensure)
			binaries.POST("/:name/update", binaryHandler.Update)
		}
		v1.POST("/info", binaryHandler.VideoInfo)

		jobHandler := handlers.NewJobHandler(deps.Jobs, deps.Logs.General())
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.Submit)
			jobs.GET("", jobHandler.List)
			jobs.GET("/stats", jobHandler.Stats)
			jobs.GET("/:id", jobHandler.Get)
			jobs.POST("/:id/cancel", jobHandler.Cancel)
		}

		eventsHandler := handlers.NewEventsHandler(deps.Hub, deps.Logs.General())
		v1.GET("/events", eventsHandler.HandleWebSocket)

		if deps.LogReader != nil {
			logHandler := handlers.NewLogHandler(deps.LogReader, deps.Logs.General())
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/stream", logHandler.StreamLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
