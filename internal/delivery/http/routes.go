package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/metrics"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, reg *metrics.Registry) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(reg.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/catalog/import", handler.ImportCatalog)

		stores := v1.Group("/stores/:storeId")
		{
			stores.POST("/match", handler.RunMatch)
			stores.GET("/matches", handler.ListMatches)
			stores.POST("/recommendations/run", handler.RunRecommendations)
			stores.GET("/recommendations", handler.ListRecommendations)
		}

		v1.POST("/matches/:id/:action", handler.MatchAction)
		v1.POST("/recommendations/:id/:action", handler.RecommendationAction)
	}

	return router
}
