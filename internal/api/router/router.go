package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigdesk/assignq/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "assignment-queue-api",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize queue handler
	queueHandler := handler.NewQueueHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		targets := v1.Group("/targets/:target_type/:target_id")
		{
			// POST /api/v1/targets/:target_type/:target_id/queue/generate - Rebuild the queue
			targets.POST("/queue/generate", queueHandler.Generate)

			// GET /api/v1/targets/:target_type/:target_id/queue - Current queue entries
			targets.GET("/queue", queueHandler.GetQueue)

			// GET /api/v1/targets/:target_type/:target_id/events - Audit trail
			targets.GET("/events", queueHandler.ListEvents)
		}

		// POST /api/v1/queue-entries/:entry_id/response - Record a decision
		v1.POST("/queue-entries/:entry_id/response", queueHandler.Respond)

		// POST /api/v1/queue/reap - Expiry sweep entry point
		v1.POST("/queue/reap", queueHandler.Reap)
	}

	return r
}
