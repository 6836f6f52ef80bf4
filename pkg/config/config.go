package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseURL       string
	DatabaseAuthToken string
	DBMaxOpenConns    int

	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	AuthRateLimit      int

	OTELEndpoint     string
	TraceSampleRatio float64

	AccessCacheTTL time.Duration
	ShutdownGrace  time.Duration
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required (libsql://, postgres:// or file path)")

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	rateRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}

	rateWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	authLimit, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT: %w", err)
	}

	accessTTL, err := time.ParseDuration(getEnv("ACCESS_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_CACHE_TTL: %w", err)
	}

	grace, err := time.ParseDuration(getEnv("SHUTDOWN_GRACE", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_GRACE: %w", err)
	}

	sampleRatio, err := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TRACE_SAMPLE_RATIO: %w", err)
	}

	dbURL := firstEnv("DATABASE_URL", "TURSO_DATABASE_URL", "VITE_TURSO_DATABASE_URL")
	if dbURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        dbURL,
		DatabaseAuthToken:  firstEnv("DATABASE_AUTH_TOKEN", "TURSO_AUTH_TOKEN", "VITE_TURSO_AUTH_TOKEN"),
		DBMaxOpenConns:     maxConns,
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:             jwtTTL,
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL:   os.Getenv("ANTHROPIC_BASE_URL"),
		AnthropicModel:     os.Getenv("ANTHROPIC_MODEL"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitRequests:  rateRequests,
		RateLimitWindow:    rateWindow,
		AuthRateLimit:      authLimit,
		OTELEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:   sampleRatio,
		AccessCacheTTL:     accessTTL,
		ShutdownGrace:      grace,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
