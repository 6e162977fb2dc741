// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	DocDB     DocDBConfig
	Vault     VaultConfig
	Auth      AuthConfig
	Chat      ChatConfig
	Breaker   BreakerConfig
	Responder ResponderConfig
	Sweep     SweepConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string

	// ServiceKey guards the admin endpoints. Empty disables them.
	ServiceKey string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type       string
	Host       string
	Port       string
	Password   string
	DB         int
	DefaultTTL time.Duration
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type     string
	URI      string
	Database string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string
	EncryptionKey string
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	// JWTSecretRef is the vault URI the signing secret resolves through.
	JWTSecretRef string
	Issuer       string
	Audience     string

	// RecordTTL bounds authenticated-connection records in the cache.
	RecordTTL time.Duration
}

// ChatConfig holds conversation and connection configuration.
type ChatConfig struct {
	ConnectionTTL             time.Duration
	SessionIdleTTL            time.Duration
	SessionMaxDurationMinutes int
	MaxMessageLength          int
	MessageTTL                time.Duration
	MaxFrameBytes             int64
	ReadTimeout               time.Duration
	PingInterval              time.Duration
	EventTimeout              time.Duration
}

// BreakerConfig holds the default circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold     int
	RecoveryTimeout      time.Duration
	MonitoringWindow     time.Duration
	MinimumRequestCount  int
	ExpectedResponseTime time.Duration
}

// ResponderConfig holds reply-generation configuration.
type ResponderConfig struct {
	Type    string
	URL     string
	APIKey  string
	Timeout time.Duration
}

// SweepConfig holds connection reclamation configuration.
type SweepConfig struct {
	Schedule string
	Timeout  time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:       getEnv("SERVER_HOST", "0.0.0.0"),
			Port:       getEnvAsInt("SERVER_PORT", 8080),
			GinMode:    getEnv("GIN_MODE", "debug"),
			ServiceKey: getEnv("ADMIN_SERVICE_KEY", ""),
		},
		Cache: CacheConfig{
			Type:       getEnv("CACHE_TYPE", "redis"),
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			DefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", 3*time.Minute),
		},
		DocDB: DocDBConfig{
			Type:     getEnv("DOCDB_TYPE", "mongodb"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "chatgate"),
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Auth: AuthConfig{
			JWTSecretRef: getEnv("AUTH_JWT_SECRET_REF", "dotenv://JWT_SECRET"),
			Issuer:       getEnv("AUTH_JWT_ISSUER", ""),
			Audience:     getEnv("AUTH_JWT_AUDIENCE", ""),
			RecordTTL:    getEnvAsDuration("AUTH_RECORD_TTL", 2*time.Hour),
		},
		Chat: ChatConfig{
			ConnectionTTL:             getEnvAsDuration("CHAT_CONNECTION_TTL", 2*time.Hour),
			SessionIdleTTL:            getEnvAsDuration("CHAT_SESSION_IDLE_TTL", 30*time.Minute),
			SessionMaxDurationMinutes: getEnvAsInt("CHAT_SESSION_MAX_DURATION_MINUTES", 1440),
			MaxMessageLength:          getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 4096),
			MessageTTL:                getEnvAsDuration("CHAT_MESSAGE_TTL", 24*time.Hour),
			MaxFrameBytes:             int64(getEnvAsInt("WS_MAX_FRAME_BYTES", 64*1024)),
			ReadTimeout:               getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			PingInterval:              getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			EventTimeout:              getEnvAsDuration("WS_EVENT_TIMEOUT", 30*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold:     getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:      getEnvAsDuration("BREAKER_RECOVERY_TIMEOUT", 15*time.Second),
			MonitoringWindow:     getEnvAsDuration("BREAKER_MONITORING_WINDOW", 30*time.Second),
			MinimumRequestCount:  getEnvAsInt("BREAKER_MINIMUM_REQUESTS", 3),
			ExpectedResponseTime: getEnvAsDuration("BREAKER_EXPECTED_RESPONSE_TIME", time.Second),
		},
		Responder: ResponderConfig{
			Type:    getEnv("RESPONDER_TYPE", "echo"),
			URL:     getEnv("RESPONDER_URL", ""),
			APIKey:  getEnv("RESPONDER_API_KEY", ""),
			Timeout: getEnvAsDuration("RESPONDER_TIMEOUT", 30*time.Second),
		},
		Sweep: SweepConfig{
			Schedule: getEnv("SWEEP_SCHEDULE", "@every 1m"),
			Timeout:  getEnvAsDuration("SWEEP_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default
// value. Values use Go duration syntax, for example "30s" or "2h".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
