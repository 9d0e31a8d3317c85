// Package config provides application configuration loaded from the
// environment. This is part of the platform layer and contains no business
// logic. Consumers depend on the narrow per-concern interfaces rather than
// the full Config struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig exposes database settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig exposes the shared cache backing store settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// DiscoveryConfig exposes identity discovery settings.
type DiscoveryConfig interface {
	GetDeskdataBaseURL() string
	GetDeskdataAPIKey() string
	GetDirectdBaseURL() string
	GetDirectdAPIKey() string
	GetMeiliBaseURL() string
	GetMeiliAPIKey() string
	GetSourceTimeout() time.Duration
	GetSourceRateLimit() float64
	GetDiscoveryCacheTTL() time.Duration
	GetRawResponseCacheTTL() time.Duration
}

// EnrichmentConfig exposes profile enrichment settings.
type EnrichmentConfig interface {
	GetProfileBaseURL() string
	GetProfileAPIKey() string
	GetProfileTimeout() time.Duration
	GetEnrichmentCooldown() time.Duration
	GetInFlightTTL() time.Duration
}

// SchedulerConfig exposes task queue settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetQueueName() string
	GetQueueConcurrency() int
}

// Config holds all application configuration.
type Config struct {
	Env         string
	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	QueueName        string
	QueueConcurrency int

	DeskdataBaseURL string
	DeskdataAPIKey  string
	DirectdBaseURL  string
	DirectdAPIKey   string
	MeiliBaseURL    string
	MeiliAPIKey     string

	SourceTimeout       time.Duration
	SourceRateLimit     float64
	DiscoveryCacheTTL   time.Duration
	RawResponseCacheTTL time.Duration

	ProfileBaseURL     string
	ProfileAPIKey      string
	ProfileTimeout     time.Duration
	EnrichmentCooldown time.Duration
	InFlightTTL        time.Duration
}

// Load reads configuration from the environment, with an optional .env file.
// Missing required credentials fail fast here rather than on the first
// upstream call.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		QueueName:        getEnv("QUEUE_NAME", "enrichment"),
		QueueConcurrency: mustInt(getEnv("QUEUE_CONCURRENCY", "10")),

		DeskdataBaseURL: getEnv("DESKDATA_BASE_URL", "https://api.deskdata.com.br"),
		DeskdataAPIKey:  getEnv("DESKDATA_API_KEY", ""),
		DirectdBaseURL:  getEnv("DIRECTD_BASE_URL", "https://apiv3.directd.com.br"),
		DirectdAPIKey:   getEnv("DIRECTD_API_KEY", ""),
		MeiliBaseURL:    getEnv("MEILISEARCH_URL", ""),
		MeiliAPIKey:     getEnv("MEILISEARCH_KEY", ""),

		SourceTimeout:       mustDuration(getEnv("SOURCE_TIMEOUT", "20s")),
		SourceRateLimit:     mustFloat(getEnv("SOURCE_RATE_LIMIT", "2")),
		DiscoveryCacheTTL:   mustDuration(getEnv("DISCOVERY_CACHE_TTL", "24h")),
		RawResponseCacheTTL: mustDuration(getEnv("RAW_RESPONSE_CACHE_TTL", "10m")),

		ProfileBaseURL:     getEnv("PROFILE_BASE_URL", "https://plataforma.bigdatacorp.com.br"),
		ProfileAPIKey:      getEnv("PROFILE_API_KEY", ""),
		ProfileTimeout:     mustDuration(getEnv("PROFILE_TIMEOUT", "30s")),
		EnrichmentCooldown: mustDuration(getEnv("ENRICHMENT_COOLDOWN", "24h")),
		InFlightTTL:        mustDuration(getEnv("IN_FLIGHT_TTL", "2m")),
	}

	if cfg.DeskdataAPIKey == "" {
		return nil, fmt.Errorf("DESKDATA_API_KEY is required")
	}
	if cfg.DirectdAPIKey == "" {
		return nil, fmt.Errorf("DIRECTD_API_KEY is required")
	}
	if cfg.MeiliBaseURL == "" {
		return nil, fmt.Errorf("MEILISEARCH_URL is required")
	}
	if cfg.ProfileAPIKey == "" {
		return nil, fmt.Errorf("PROFILE_API_KEY is required")
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
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// SchedulerConfig implementation
func (c *Config) GetQueueName() string     { return c.QueueName }
func (c *Config) GetQueueConcurrency() int { return c.QueueConcurrency }

// DiscoveryConfig implementation
func (c *Config) GetDeskdataBaseURL() string            { return c.DeskdataBaseURL }
func (c *Config) GetDeskdataAPIKey() string             { return c.DeskdataAPIKey }
func (c *Config) GetDirectdBaseURL() string             { return c.DirectdBaseURL }
func (c *Config) GetDirectdAPIKey() string              { return c.DirectdAPIKey }
func (c *Config) GetMeiliBaseURL() string               { return c.MeiliBaseURL }
func (c *Config) GetMeiliAPIKey() string                { return c.MeiliAPIKey }
func (c *Config) GetSourceTimeout() time.Duration       { return c.SourceTimeout }
func (c *Config) GetSourceRateLimit() float64           { return c.SourceRateLimit }
func (c *Config) GetDiscoveryCacheTTL() time.Duration   { return c.DiscoveryCacheTTL }
func (c *Config) GetRawResponseCacheTTL() time.Duration { return c.RawResponseCacheTTL }

// EnrichmentConfig implementation
func (c *Config) GetProfileBaseURL() string            { return c.ProfileBaseURL }
func (c *Config) GetProfileAPIKey() string             { return c.ProfileAPIKey }
func (c *Config) GetProfileTimeout() time.Duration     { return c.ProfileTimeout }
func (c *Config) GetEnrichmentCooldown() time.Duration { return c.EnrichmentCooldown }
func (c *Config) GetInFlightTTL() time.Duration        { return c.InFlightTTL }
