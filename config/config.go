package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Venue queue backend (external collaborator)
	BackendBaseURL string
	BackendVenueID string
	BackendAPIKey  string
	BackendHMACKey string

	// Waitline configuration
	VenueTimezone   string
	PositionSlot    time.Duration // estimated wait per party ahead
	NotifyThreshold time.Duration // "almost ready" cutoff
	TickInterval    time.Duration // wait watcher recomputation period

	// Rate limiting
	JoinRateLimit  int
	JoinRateWindow time.Duration

	// Admin (host stand)
	AdminTokenHash string // bcrypt hash of the host-stand token

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Venue backend
		BackendBaseURL: getEnv("VENUE_BACKEND_URL", ""),
		BackendVenueID: getEnv("VENUE_BACKEND_VENUE_ID", ""),
		BackendAPIKey:  getEnv("VENUE_BACKEND_API_KEY", ""),
		BackendHMACKey: getEnv("VENUE_BACKEND_HMAC_KEY", ""),

		// Waitline
		VenueTimezone:   getEnv("VENUE_TIMEZONE", "Local"),
		PositionSlot:    getEnvAsDuration("POSITION_SLOT", "15m"),
		NotifyThreshold: getEnvAsDuration("NOTIFY_THRESHOLD", "5m"),
		TickInterval:    getEnvAsDuration("TICK_INTERVAL", "1s"),

		// Rate limiting
		JoinRateLimit:  getEnvAsInt("JOIN_RATE_LIMIT", 5),
		JoinRateWindow: getEnvAsDuration("JOIN_RATE_WINDOW", "1m"),

		// Admin
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

// Location resolves the venue timezone; service dates and time slots
// are interpreted in it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
