package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/al3-renewal-pipeline/internal/api_gateway/handler"
	"github.com/al3-renewal-pipeline/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	batchHandler *handler.BatchHandler,
	reviewHandler *handler.ReviewHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Batch operations. Upload is the only route that needs the
		// tenant; reads are keyed by batch id alone.
		batches := v1.Group("/batches")
		{
			batches.POST("", middleware.TenantID(), batchHandler.Upload)
			batches.GET("/:id", batchHandler.GetByID)
			batches.GET("/:id/log", batchHandler.GetLog)
			batches.GET("/:id/candidates", batchHandler.GetCandidates)
			batches.POST("/:id/reprocess", batchHandler.Reprocess)
		}

		// Review operations
		candidates := v1.Group("/candidates")
		{
			candidates.GET("/:id", reviewHandler.GetCandidate)
			candidates.GET("/:id/comparison", reviewHandler.GetComparison)
		}
		comparisons := v1.Group("/comparisons")
		{
			comparisons.POST("/:id/decision", reviewHandler.RecordDecision)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
