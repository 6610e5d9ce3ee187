package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/api/handlers"
	"github.com/customeros/mailsync/api/middleware"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s)

	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/v1")
	api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.DefaultAPIKeyHeader,
		ValidAPIKey: apikey,
	}))
	api.Use(middleware.TracingMiddleware())
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", apiHandlers.Accounts.Create())
			accounts.GET("", apiHandlers.Accounts.List())
			accounts.GET("/:id", apiHandlers.Accounts.Get())
			accounts.PATCH("/:id", apiHandlers.Accounts.Update())
			accounts.DELETE("/:id", apiHandlers.Accounts.Delete())
			accounts.POST("/:id/test", apiHandlers.Accounts.TestConnection())
			accounts.POST("/:id/sync", apiHandlers.Sync.Sync())
			accounts.GET("/:id/folders", apiHandlers.Sync.Folders())
			accounts.GET("/:id/count", apiHandlers.Sync.Count())
			accounts.GET("/:id/messages", apiHandlers.Sync.Messages())
		}
	}
}
