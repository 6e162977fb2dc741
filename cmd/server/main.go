// Package main is the entry point for the ChatGate Chat Service.
// @title ChatGate Chat Service API
// @version 1.0
// @description Realtime chat gateway with a durable connection registry, JWT authentication and circuit-breaker protected message dispatch
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/chatgate/chat-service
// @contact.email support@chatgate.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication

// @securityDefinitions.apikey ServiceKeyAuth
// @in header
// @name X-Service-Key
// @description Shared service key guarding the admin endpoints
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/chatgate/chat-service/docs"
	"github.com/chatgate/chat-service/internal/api/handlers"
	"github.com/chatgate/chat-service/internal/api/middleware"
	"github.com/chatgate/chat-service/internal/api/routes"
	"github.com/chatgate/chat-service/internal/config"
	"github.com/chatgate/chat-service/internal/core/breaker"
	"github.com/chatgate/chat-service/internal/core/cache"
	"github.com/chatgate/chat-service/internal/core/docdb"
	"github.com/chatgate/chat-service/internal/core/vault"
	rediscache "github.com/chatgate/chat-service/internal/infrastructure/cache/redis"
	"github.com/chatgate/chat-service/internal/infrastructure/docdb/mongodb"
	jwtverifier "github.com/chatgate/chat-service/internal/infrastructure/identity/jwt"
	dotenvvault "github.com/chatgate/chat-service/internal/infrastructure/vault/dotenv"
	"github.com/chatgate/chat-service/internal/metrics"
	"github.com/chatgate/chat-service/internal/pkg/encryption"
	"github.com/chatgate/chat-service/internal/services/authgate"
	"github.com/chatgate/chat-service/internal/services/conversation"
	"github.com/chatgate/chat-service/internal/services/registry"
	"github.com/chatgate/chat-service/internal/services/responder"
	"github.com/chatgate/chat-service/internal/services/sessions"
	transportws "github.com/chatgate/chat-service/internal/transport/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := setupLogger(cfg.Log)

	ctx := context.Background()

	// Initialize vault client using factory pattern
	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	defer vaultClient.Close()

	// Initialize cache client using factory pattern
	cacheClient, err := createCacheClient(cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache client")
	}
	defer cacheClient.Close()

	// Initialize document db client using factory pattern
	docDBClient, err := createDocDBClient(ctx, cfg.DocDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize document db client")
	}
	defer docDBClient.Close(ctx)

	// Ensure database indexes
	if err := docDBClient.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// Initialize encryptor
	encryptor, err := createEncryptor(cfg.Vault, vaultClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	// Resolve the token signing secret through the vault
	jwtSecret, err := resolveJWTSecret(ctx, vaultClient, cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve jwt secret")
	}

	verifier, err := jwtverifier.NewVerifier(jwtverifier.Config{
		Secret:   jwtSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	// Initialize metrics
	metricsSet := metrics.New(nil)
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metricsSet.Register(promRegistry); err != nil {
		logger.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Initialize circuit breakers
	breakerSet := breaker.NewBreaker(&breaker.Config{
		Defaults: breaker.Settings{
			FailureThreshold:     cfg.Breaker.FailureThreshold,
			RecoveryTimeout:      cfg.Breaker.RecoveryTimeout,
			MonitoringWindow:     cfg.Breaker.MonitoringWindow,
			MinimumRequestCount:  cfg.Breaker.MinimumRequestCount,
			ExpectedResponseTime: cfg.Breaker.ExpectedResponseTime,
		},
		Recorder: metricsSet,
	})

	// Initialize connection registry
	registrySvc, err := registry.NewService(&registry.Config{
		CacheClient: cacheClient,
		TTL:         cfg.Chat.ConnectionTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize connection registry")
	}

	// Initialize authentication gate
	authGate, err := authgate.NewService(&authgate.Config{
		Verifier:    verifier,
		CacheClient: cacheClient,
		Encryptor:   encryptor,
		TTL:         cfg.Auth.RecordTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize authentication gate")
	}

	// Initialize sessions service
	sessionsSvc, err := sessions.NewService(&sessions.Config{
		Store:              docDBClient.Sessions(),
		IdleTTL:            cfg.Chat.SessionIdleTTL,
		MaxDurationMinutes: cfg.Chat.SessionMaxDurationMinutes,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sessions service")
	}

	// Initialize responder using factory pattern
	responderSvc, err := createResponder(cfg.Responder)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize responder")
	}
	defer responderSvc.Close()

	// Initialize the websocket hub and conversation dispatcher
	hub, err := transportws.NewHub(&transportws.HubConfig{
		Metrics: metricsSet,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize websocket hub")
	}

	conversationSvc, err := conversation.NewService(&conversation.Config{
		Registry:         registrySvc,
		AuthGate:         authGate,
		Sessions:         sessionsSvc,
		Messages:         docDBClient.Messages(),
		Responder:        responderSvc,
		Deliverer:        hub,
		Breaker:          breakerSet,
		Metrics:          metricsSet,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		MessageTTL:       cfg.Chat.MessageTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize conversation service")
	}

	wsHandler, err := transportws.NewHandler(&transportws.HandlerConfig{
		Hub:           hub,
		Conversation:  conversationSvc,
		MaxFrameBytes: cfg.Chat.MaxFrameBytes,
		ReadTimeout:   cfg.Chat.ReadTimeout,
		PingInterval:  cfg.Chat.PingInterval,
		EventTimeout:  cfg.Chat.EventTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize websocket handler")
	}

	// Start the connection reclamation sweep
	sweeper, err := registry.NewSweeper(&registry.SweeperConfig{
		Registry: registrySvc,
		Metrics:  metricsSet,
		Schedule: cfg.Sweep.Schedule,
		Timeout:  cfg.Sweep.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize connection sweeper")
	}
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start connection sweeper")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Setup router
	metricsHandler := promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
	router := setupRouter(cfg, cacheClient, docDBClient, registrySvc, authGate, sessionsSvc, breakerSet, sweeper, wsHandler, metricsHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Stop background work first, then drain the transport. Closing the hub
	// makes every read pump run its disconnect cleanup before the server
	// stops accepting.
	sweeper.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger from the log config.
func setupLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "chat-service").Logger()
	if cfg.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	log.Logger = logger
	return logger
}

// createVaultClient creates a vault client based on the configuration.
func createVaultClient(cfg config.VaultConfig) (vault.Client, error) {
	vaultType := vault.Type(cfg.Type)

	switch vaultType {
	case vault.TypeDotEnv:
		return dotenvvault.NewClient()
	case vault.TypeAzure, vault.TypeHashiCorp:
		return nil, fmt.Errorf("vault type %s is not implemented", cfg.Type)
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
func createCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	cacheType := cache.Type(cfg.Type)

	switch cacheType {
	case cache.TypeRedis:
		return rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.DefaultTTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createDocDBClient creates a document database client based on the configuration.
func createDocDBClient(ctx context.Context, cfg config.DocDBConfig) (docdb.Client, error) {
	docDBType := docdb.Type(cfg.Type)

	switch docDBType {
	case docdb.TypeMongoDB:
		return mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.URI,
			DatabaseName: cfg.Database,
		})
	case docdb.TypeCosmosDB:
		// CosmosDB uses MongoDB protocol, so we can use the same client
		return mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.URI,
			DatabaseName: cfg.Database,
		})
	default:
		return nil, fmt.Errorf("unsupported docdb type: %s", cfg.Type)
	}
}

// createEncryptor creates an encryptor based on the configuration.
func createEncryptor(cfg config.VaultConfig, vaultClient vault.Client) (encryption.Encryptor, error) {
	// Try to get encryption key from vault/env
	encryptionKey := cfg.EncryptionKey
	if encryptionKey == "" {
		// Try to get from vault
		key, err := vaultClient.GetSecret(context.Background(), "dotenv://SECRETS_ENCRYPTION_KEY", false)
		if err == nil && key != "" {
			encryptionKey = key
		}
	}

	if encryptionKey == "" {
		// Use NoOp encryptor in development
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, using NoOp encryptor")
		return encryption.NewNoOpEncryptor(), nil
	}

	return encryption.NewAESEncryptor(encryptionKey)
}

// createResponder creates a reply-generation backend based on the configuration.
func createResponder(cfg config.ResponderConfig) (responder.Responder, error) {
	return responder.NewResponder(&responder.Config{
		Type: responder.ResponderType(cfg.Type),
		HTTP: &responder.HTTPConfig{
			URL:     cfg.URL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		},
	})
}

// resolveJWTSecret fetches the token signing secret through the vault.
func resolveJWTSecret(ctx context.Context, vaultClient vault.Client, cfg config.AuthConfig) (string, error) {
	secret, err := vaultClient.GetSecret(ctx, cfg.JWTSecretRef, false)
	if err != nil {
		return "", fmt.Errorf("failed to resolve jwt secret from %s: %w", cfg.JWTSecretRef, err)
	}
	if secret == "" {
		return "", fmt.Errorf("jwt secret at %s is empty", cfg.JWTSecretRef)
	}
	return secret, nil
}

// setupRouter creates and configures the Gin router.
func setupRouter(cfg *config.Config, cacheClient cache.Client, docDBClient docdb.Client, registrySvc registry.Service, authGate authgate.Service, sessionsSvc sessions.Service, breakerSet breaker.Breaker, sweeper *registry.Sweeper, wsHandler *transportws.Handler, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()

	// Create middleware
	loggingMw := middleware.NewLoggingMiddleware()
	errorMw := middleware.NewErrorMiddleware()
	authMw := middleware.NewAuthMiddleware(authGate)
	serviceKeyMw := middleware.NewServiceKeyMiddleware(cfg.Server.ServiceKey)

	// Create handlers
	healthHandler := handlers.NewHealthHandler(cacheClient, docDBClient)
	messagesHandler := handlers.NewMessagesHandler(docDBClient.Messages(), sessionsSvc)
	sessionsHandler := handlers.NewSessionsHandler(sessionsSvc)
	adminHandler := handlers.NewAdminHandler(breakerSet, registrySvc, authGate, sessionsSvc, sweeper)

	// Setup routes
	routesCfg := &routes.Config{
		HealthHandler:    healthHandler,
		MessagesHandler:  messagesHandler,
		SessionsHandler:  sessionsHandler,
		AdminHandler:     adminHandler,
		WebSocketHandler: wsHandler,
		MetricsHandler:   metricsHandler,
		AuthMiddleware:   authMw,
		ServiceKey:       serviceKeyMw,
	}

	routes.SetupWithMiddleware(router, routesCfg, loggingMw, errorMw, middleware.DefaultCORSConfig())

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
