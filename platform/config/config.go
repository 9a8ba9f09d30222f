// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// AuctionConfig provides settings for the auction coordinator.
type AuctionConfig interface {
	GetAuctionDeadline() time.Duration
	GetDefaultPingTimeout() time.Duration
	GetPostTimeout() time.Duration
	GetMaxRetryAttempts() int
	GetNoBidsPolicy() string
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPendingBatchSize() int
	GetPendingScanInterval() time.Duration
}

// RateLimitConfig provides settings for webhook rate limiting.
type RateLimitConfig interface {
	GetWebhookRatePerSecond() float64
	GetWebhookRateBurst() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	AuctionDeadline      time.Duration
	DefaultPingTimeout   time.Duration
	PostTimeout          time.Duration
	MaxRetryAttempts     int
	NoBidsPolicy         string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	PendingBatchSize     int
	PendingScanInterval  time.Duration
	WebhookRatePerSecond float64
	WebhookRateBurst     int
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// AuctionConfig implementation
func (c *Config) GetAuctionDeadline() time.Duration    { return c.AuctionDeadline }
func (c *Config) GetDefaultPingTimeout() time.Duration { return c.DefaultPingTimeout }
func (c *Config) GetPostTimeout() time.Duration        { return c.PostTimeout }
func (c *Config) GetMaxRetryAttempts() int             { return c.MaxRetryAttempts }
func (c *Config) GetNoBidsPolicy() string              { return c.NoBidsPolicy }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetPendingBatchSize() int              { return c.PendingBatchSize }
func (c *Config) GetPendingScanInterval() time.Duration { return c.PendingScanInterval }

// RateLimitConfig implementation
func (c *Config) GetWebhookRatePerSecond() float64 { return c.WebhookRatePerSecond }
func (c *Config) GetWebhookRateBurst() int         { return c.WebhookRateBurst }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AuctionDeadline:      mustDuration(getEnv("AUCTION_DEADLINE", "15s")),
		DefaultPingTimeout:   mustDuration(getEnv("AUCTION_PING_TIMEOUT", "10s")),
		PostTimeout:          mustDuration(getEnv("AUCTION_POST_TIMEOUT", "10s")),
		MaxRetryAttempts:     mustInt(getEnv("AUCTION_MAX_RETRY_ATTEMPTS", "2")),
		NoBidsPolicy:         getEnv("AUCTION_NO_BIDS_POLICY", "REJECTED"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		PendingBatchSize:     mustInt(getEnv("AUCTION_PENDING_BATCH_SIZE", "50")),
		PendingScanInterval:  mustDuration(getEnv("AUCTION_PENDING_SCAN_INTERVAL", "30s")),
		WebhookRatePerSecond: mustFloat(getEnv("WEBHOOK_RATE_PER_SECOND", "25")),
		WebhookRateBurst:     mustInt(getEnv("WEBHOOK_RATE_BURST", "50")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.NoBidsPolicy != "REJECTED" && cfg.NoBidsPolicy != "EXPIRED" {
		return nil, fmt.Errorf("AUCTION_NO_BIDS_POLICY must be REJECTED or EXPIRED, got %q", cfg.NoBidsPolicy)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
