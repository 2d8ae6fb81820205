// Package config provides configuration management for the payment gateway
// admission layer. It handles loading configuration from environment variables
// with sensible defaults and validates the configuration to ensure the
// application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - TLS_CERT / TLS_KEY: Optional TLS certificate and key paths
//
// Security Configuration:
//   - JWT_SECRET: Session token signing secret (required, minimum 32 characters)
//   - API_KEY_PREFIX: Merchant API key prefix (default: pk)
//   - SIGNATURE_TOLERANCE: Replay-protection window for signed requests (default: 300s)
//
// Abuse Protection:
//   - DDOS_MAX_REQUESTS_PER_MINUTE: Sustained per-client ceiling (default: 120)
//   - DDOS_MAX_REQUESTS_PER_SECOND: Per-client rate ceiling (default: 20)
//   - DDOS_BURST_THRESHOLD: Requests per second that count as a burst (default: 50)
//   - DDOS_SUSPICIOUS_THRESHOLD: Violations before an automatic block (default: 3)
//   - DDOS_BLOCK_DURATION: How long abusive clients stay blocked (default: 15m)
//   - DDOS_CLEANUP_INTERVAL: Sweep cadence for stale client records (default: 60s)
//   - DDOS_CLEANUP_AGE: Idle age after which records are evicted (default: 5m)
//
// Cost-Based Limiting:
//   - COST_MAX_POINTS: Point budget per client (default: 100)
//   - COST_REFILL_RATE: Points refilled per second (default: 10)
//
// Rate-Limit Counters:
//   - REDIS_ADDRESS: Redis address for shared fixed-window counters
//     (empty = in-process counters)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Merchant Directory:
//   - DIRECTORY_BACKEND: "memory", "sqlite" or "postgres" (default: sqlite)
//   - DIRECTORY_SQLITE_PATH: SQLite database file path (default: ./merchants.db)
//   - POSTGRES_HOST / POSTGRES_PORT / POSTGRES_DB / POSTGRES_USER /
//     POSTGRES_PASSWORD / POSTGRES_SSL_MODE: PostgreSQL connection settings
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the admission layer.
// All fields correspond to environment variables that can be set to
// override the default values.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	TLSCert  string // TLS certificate path (optional)
	TLSKey   string // TLS key path (optional)

	// Security configuration
	JWTSecret          string        // Secret key for session token signing (required)
	APIKeyPrefix       string        // Merchant API key prefix (e.g. "pk" for pk_live_...)
	SignatureTolerance time.Duration // Accepted clock skew for signed requests

	// Abuse protection thresholds
	MaxRequestsPerMinute int           // Sustained per-client ceiling
	MaxRequestsPerSecond int           // Per-client rate ceiling
	BurstThreshold       int           // Requests within one second that count as a burst
	SuspiciousThreshold  int           // Violations tolerated before an automatic block
	BlockDuration        time.Duration // How long abusive clients stay blocked
	CleanupInterval      time.Duration // Sweep cadence for stale client records
	CleanupAge           time.Duration // Idle age after which records are evicted

	// Cost-based limiting
	CostMaxPoints  float64 // Point budget per client
	CostRefillRate float64 // Points refilled per second

	// Redis configuration for shared rate-limit counters
	RedisAddress  string // Redis server address (host:port), empty disables Redis
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)

	// Merchant directory configuration
	DirectoryBackend string // Directory backend: "memory", "sqlite" or "postgres"
	SQLitePath       string // Path to SQLite merchant database
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, require, etc.)
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding
// default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TLSCert:  getEnv("TLS_CERT", ""),
		TLSKey:   getEnv("TLS_KEY", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		APIKeyPrefix:       getEnv("API_KEY_PREFIX", "pk"),
		SignatureTolerance: getDurationEnv("SIGNATURE_TOLERANCE", 300*time.Second),

		MaxRequestsPerMinute: getIntEnv("DDOS_MAX_REQUESTS_PER_MINUTE", 120),
		MaxRequestsPerSecond: getIntEnv("DDOS_MAX_REQUESTS_PER_SECOND", 20),
		BurstThreshold:       getIntEnv("DDOS_BURST_THRESHOLD", 50),
		SuspiciousThreshold:  getIntEnv("DDOS_SUSPICIOUS_THRESHOLD", 3),
		BlockDuration:        getDurationEnv("DDOS_BLOCK_DURATION", 15*time.Minute),
		CleanupInterval:      getDurationEnv("DDOS_CLEANUP_INTERVAL", 60*time.Second),
		CleanupAge:           getDurationEnv("DDOS_CLEANUP_AGE", 5*time.Minute),

		CostMaxPoints:  getFloatEnv("COST_MAX_POINTS", 100),
		CostRefillRate: getFloatEnv("COST_REFILL_RATE", 10),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		DirectoryBackend: getEnv("DIRECTORY_BACKEND", "sqlite"),
		SQLitePath:       getEnv("DIRECTORY_SQLITE_PATH", "./merchants.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "payment_gateway"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// The application should call this method after loading configuration and
// before starting to ensure safe operation.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.APIKeyPrefix == "" {
		return fmt.Errorf("API_KEY_PREFIX must not be empty")
	}

	if c.SignatureTolerance <= 0 {
		return fmt.Errorf("SIGNATURE_TOLERANCE must be a positive duration")
	}

	if c.MaxRequestsPerMinute < 1 || c.MaxRequestsPerSecond < 1 || c.BurstThreshold < 1 {
		return fmt.Errorf("abuse protection thresholds must be positive")
	}

	if c.BlockDuration <= 0 || c.CleanupInterval <= 0 || c.CleanupAge <= 0 {
		return fmt.Errorf("abuse protection durations must be positive")
	}

	if c.CostMaxPoints <= 0 || c.CostRefillRate <= 0 {
		return fmt.Errorf("cost limiter budget and refill rate must be positive")
	}

	switch c.DirectoryBackend {
	case "memory", "sqlite", "postgres", "postgresql":
		// Valid directory backends
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be 'memory', 'sqlite' or 'postgres'")
	}

	if c.DirectoryBackend == "postgres" || c.DirectoryBackend == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	return nil
}

// PostgresDSN builds the PostgreSQL connection string from the configured
// values. Only meaningful when DirectoryBackend selects PostgreSQL.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSLMode)
}
