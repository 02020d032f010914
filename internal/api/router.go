package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rowan/genbridge/internal/api/handler"
	"github.com/rowan/genbridge/internal/api/middleware"
	"github.com/rowan/genbridge/internal/engine"
	"github.com/rowan/genbridge/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	manager *engine.Manager,
	mode string,
	cors middleware.CORSConfig,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	workflowHandler := handler.NewWorkflowHandler(manager, log)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Workflow views
		v1.GET("/workflows/:id/jobs", workflowHandler.ListJobs)
		v1.GET("/workflows/:id/outputs", workflowHandler.ListOutputs)
		v1.POST("/workflows/:id/run", workflowHandler.Run)

		// Job operations on the active view
		v1.POST("/jobs/:id/cancel", workflowHandler.Cancel)
		v1.POST("/jobs/:id/recheck", workflowHandler.Recheck)

		// Sync status
		v1.GET("/status", workflowHandler.Status)
	}

	return r
}
