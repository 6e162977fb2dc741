// Package routes defines the HTTP routes for the ChatGate Chat Service.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatgate/chat-service/internal/api/handlers"
	"github.com/chatgate/chat-service/internal/api/middleware"
	transportws "github.com/chatgate/chat-service/internal/transport/websocket"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler    *handlers.HealthHandler
	MessagesHandler  *handlers.MessagesHandler
	SessionsHandler  *handlers.SessionsHandler
	AdminHandler     *handlers.AdminHandler
	WebSocketHandler *transportws.Handler
	MetricsHandler   http.Handler
	AuthMiddleware   *middleware.AuthMiddleware
	ServiceKey       *middleware.ServiceKeyMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// WebSocket upgrade endpoint
	r.GET("/ws", cfg.WebSocketHandler.Handle)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))

	// API v1 routes - all routes under /api/v1/chat-service
	v1 := r.Group("/api/v1/chat-service")
	{
		// Health check routes (no auth required)
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		// Bearer-token protected routes
		protected := v1.Group("")
		protected.Use(cfg.AuthMiddleware.Authenticate())
		{
			protected.GET("/sessions", cfg.SessionsHandler.ListSessions)
			protected.GET("/sessions/:sessionId/messages", cfg.MessagesHandler.ListMessages)
		}

		// Operator routes guarded by the service key
		admin := v1.Group("/admin")
		admin.Use(cfg.ServiceKey.Require())
		{
			admin.GET("/breakers", cfg.AdminHandler.ListBreakers)
			admin.POST("/breakers/reset", cfg.AdminHandler.ResetBreakers)
			admin.GET("/connections/:connectionId", cfg.AdminHandler.GetConnection)
			admin.POST("/sessions/:sessionId/suspend", cfg.AdminHandler.SuspendSession)
			admin.POST("/sessions/:sessionId/deactivate", cfg.AdminHandler.DeactivateSession)
			admin.POST("/sessions/:sessionId/reactivate", cfg.AdminHandler.ReactivateSession)
			admin.POST("/sweep", cfg.AdminHandler.Sweep)
		}
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware, corsCfg middleware.CORSConfig) {
	// Apply global middleware
	r.Use(middleware.NewCORSMiddleware(corsCfg))
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(gin.Recovery())

	// Setup routes
	Setup(r, cfg)
}
