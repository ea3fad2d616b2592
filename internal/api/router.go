package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/squad-optimizer/internal/api/handlers"
	"github.com/stitts-dev/squad-optimizer/internal/api/middleware"
)

// SetupRouter wires every endpoint of the service. ws may be nil when progress
// streaming is disabled.
func SetupRouter(
	optimization *handlers.OptimizationHandler,
	health *handlers.HealthHandler,
	ws gin.HandlerFunc,
	corsOrigins []string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(corsOrigins))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimization.OptimizeSquad)
		apiV1.POST("/optimize/validate", optimization.ValidateRequest)
		apiV1.GET("/formations", optimization.GetFormations)
		apiV1.GET("/weights", optimization.GetWeights)

		apiV1.GET("/squads/:session_id", optimization.GetLastSquad)
		apiV1.DELETE("/squads/:session_id", optimization.ClearLastSquad)
	}

	if ws != nil {
		router.GET("/ws/optimization-progress/:session_id", ws)
	}

	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)
	router.GET("/metrics", health.GetMetrics)

	return router
}
