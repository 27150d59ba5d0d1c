package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendS3       = "s3"
	BackendDynamo   = "dynamodb"
	BackendPostgres = "postgres"
)

// Config holds application configuration for the API server, the lambda
// handler and the CLI client.
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	ChatRateLimit      float64
	ChatRateBurst      int
	JWTSecret          string

	// Persistence
	StorageBackend   string
	DataDir          string
	StoreSaveTimeout time.Duration
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	RedisKeyPrefix   string
	S3Bucket         string
	S3Prefix         string
	DynamoTable      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Assistant chat
	ChatProvider   string
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string

	// Patient email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// Client
	APIBaseURL        string
	SyncInterval      time.Duration
	LocalCachePath    string
	RealtimeEnabled   bool
	OutboxRetryBase   time.Duration
	OutboxRetryMax    time.Duration
	OutboxMaxAttempts int
	Chime             bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ChatRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT", 1),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 5),
		JWTSecret:          getEnv("JWT_SECRET", ""),

		StorageBackend:   strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", BackendFile))),
		DataDir:          getEnv("DATA_DIR", "./data"),
		StoreSaveTimeout: getEnvAsDuration("STORE_SAVE_TIMEOUT", 5*time.Second),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		RedisKeyPrefix:   getEnv("REDIS_KEY_PREFIX", "medipulse:"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", "medipulse"),
		DynamoTable:      getEnv("DYNAMODB_TABLE", "medipulse_collections"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ChatProvider:   strings.ToLower(strings.TrimSpace(getEnv("CHAT_PROVIDER", "gemini"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "log"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MediPulse"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		APIBaseURL:        getEnv("MEDIPULSE_API_URL", "http://localhost:8080"),
		SyncInterval:      getEnvAsDuration("SYNC_INTERVAL", 5*time.Second),
		LocalCachePath:    getEnv("LOCAL_CACHE_PATH", "medipulse-cache.db"),
		RealtimeEnabled:   getEnvAsBool("REALTIME_ENABLED", true),
		OutboxRetryBase:   getEnvAsDuration("OUTBOX_RETRY_BASE", 2*time.Second),
		OutboxRetryMax:    getEnvAsDuration("OUTBOX_RETRY_MAX", 2*time.Minute),
		OutboxMaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 10),
		Chime:             getEnvAsBool("CHIME", true),
	}
}

// ValidateServer checks that the selected storage backend has what it needs.
func (c *Config) ValidateServer() error {
	var errs []error
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the file backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	case BackendDynamo:
		if c.DynamoTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.ChatRateLimit <= 0 || c.ChatRateBurst <= 0 {
		errs = append(errs, errors.New("CHAT_RATE_LIMIT and CHAT_RATE_BURST must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
