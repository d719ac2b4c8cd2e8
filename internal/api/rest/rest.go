package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/eventfold/analytics/internal/api/middleware"
	"github.com/eventfold/analytics/internal/domain"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, keys middleware.KeyValidator) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	read := middleware.RequirePermission(keys, domain.PermissionRead)
	write := middleware.RequirePermission(keys, domain.PermissionWrite)
	admin := middleware.RequirePermission(keys, domain.PermissionAdmin)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Event ingestion (requires write permission)
		v1.POST("/events", write, handler.IngestEvents)

		// Analytics endpoints (require read permission)
		v1.GET("/analytics/dau", read, handler.GetDAU)
		v1.GET("/analytics/top-events", read, handler.GetTopEvents)
		v1.GET("/analytics/retention", read, handler.GetRetention)
		v1.GET("/analytics/cohorts", read, handler.GetCohorts)
		v1.GET("/analytics/users/:user_id/retention", read, handler.GetUserRetention)
		v1.GET("/analytics/users/:user_id/stats", read, handler.GetUserStats)
		v1.GET("/analytics/ingestion", read, handler.GetIngestionMetrics)

		// User management (requires admin permission)
		v1.POST("/users", admin, handler.CreateUser)
		v1.GET("/users/:user_id", read, handler.GetUser)
		v1.GET("/users", read, handler.ListUsers)

		// API key management (requires admin permission)
		v1.POST("/keys", admin, handler.CreateAPIKey)
		v1.GET("/keys", admin, handler.ListAPIKeys)
		v1.DELETE("/keys/:id", admin, handler.RevokeAPIKey)
	}
}
