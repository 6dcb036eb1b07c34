package http

import (
	"github.com/dupelens/backend/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		scopes := v1.Group("/scopes/:scopeID")
		{
			scopes.POST("/scans", handler.RunScan)
			scopes.GET("/groups", handler.ListGroups)
			scopes.GET("/stats", handler.GetStats)
			scopes.POST("/backups", handler.CreateBackup)
			scopes.GET("/items/:itemID/backups", handler.ListBackups)
		}
	}

	return router
}
