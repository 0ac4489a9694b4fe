package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	ServiceName string
	ServicePort int
	Store       StoreConfig
	Push        PushConfig
	RabbitMQ    RabbitMQConfig
	Validation  ValidationConfig
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is one of: postgres, redis, memory.
	Backend       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// PushConfig holds push-delivery and credential-exchange settings. An
// empty endpoint (and project id) disables push delivery.
type PushConfig struct {
	Endpoint       string
	ProjectID      string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Scope          string
	TimeoutSeconds int
}

// Enabled reports whether a push endpoint is configured.
func (p PushConfig) Enabled() bool {
	return p.Endpoint != ""
}

// RabbitMQConfig holds event publishing settings. An empty URL disables
// event publishing.
type RabbitMQConfig struct {
	URL               string
	Exchange          string
	ReadingRoutingKey string
	WarningRoutingKey string
}

// ValidationConfig holds reading validation settings.
type ValidationConfig struct {
	TimestampToleranceMinutes int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "flowmeter-monitor"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8080),
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", "postgres"),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Push: PushConfig{
			Endpoint:       getEnv("PUSH_ENDPOINT", ""),
			ProjectID:      getEnv("FCM_PROJECT_ID", ""),
			TokenURL:       getEnv("PUSH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			ClientID:       getEnv("PUSH_CLIENT_ID", ""),
			ClientSecret:   getEnv("PUSH_CLIENT_SECRET", ""),
			Scope:          getEnv("PUSH_SCOPE", "https://www.googleapis.com/auth/firebase.messaging"),
			TimeoutSeconds: getEnvAsInt("PUSH_TIMEOUT_SECONDS", 10),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			Exchange:          getEnv("RABBITMQ_EXCHANGE", "flowmeter.events.exchange"),
			ReadingRoutingKey: getEnv("RABBITMQ_READING_ROUTING_KEY", "flowmeter.reading.accepted"),
			WarningRoutingKey: getEnv("RABBITMQ_WARNING_ROUTING_KEY", "flowmeter.warning.fired"),
		},
		Validation: ValidationConfig{
			TimestampToleranceMinutes: getEnvAsInt("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", 10080),
		},
	}

	// A bare project id is enough to derive the FCM v1 endpoint.
	if cfg.Push.Endpoint == "" && cfg.Push.ProjectID != "" {
		cfg.Push.Endpoint = fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", cfg.Push.ProjectID)
	}

	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store backend")
		}
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis store backend")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (expected postgres, redis or memory)", cfg.Store.Backend)
	}

	if cfg.Push.Enabled() {
		if cfg.Push.ClientID == "" || cfg.Push.ClientSecret == "" {
			return nil, fmt.Errorf("PUSH_CLIENT_ID and PUSH_CLIENT_SECRET are required when push delivery is configured")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
