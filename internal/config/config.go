package config

import (
	"fmt"
	"os"
)

// DevSigningKey is the insecure fallback signing key used when SIGNING_KEY
// is not set. It exists so the service can be exercised locally without any
// setup; production mode refuses to start with it.
const DevSigningKey = "dev-secret-key"

// Environment names accepted in the ENVIRONMENT variable.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the application configuration
type Config struct {
	// HMAC signing key for session credentials
	SigningKey string

	// True when SigningKey fell back to the development default
	InsecureSigningKey bool

	// Deployment environment (development or production)
	Environment string

	// Audit store connection string (DSN); SQLite file or postgres:// URL
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Append-only audit text log path
	AuditLogPath string

	// Enable debug logging
	Debug bool
}

// Load reads configuration from environment variables with fallback defaults.
// A missing signing key is tolerated in development (with the insecure
// default flagged on the returned Config) and fatal in production.
func Load() (*Config, error) {
	cfg := &Config{
		SigningKey:   getEnv("SIGNING_KEY", ""),
		Environment:  getEnv("ENVIRONMENT", EnvDevelopment),
		DatabaseURL:  getEnv("DATABASE_URL", "pamapi.db"),
		ServerAddr:   getEnv("SERVER_ADDR", "localhost:8080"),
		AuditLogPath: getEnv("AUDIT_LOG_PATH", "logs/access.log"),
		Debug:        getEnvBool("DEBUG", false),
	}

	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return nil, fmt.Errorf("ENVIRONMENT must be %q or %q, got %q",
			EnvDevelopment, EnvProduction, cfg.Environment)
	}

	if cfg.SigningKey == "" {
		if cfg.Environment == EnvProduction {
			return nil, fmt.Errorf("SIGNING_KEY is required in production")
		}
		cfg.SigningKey = DevSigningKey
		cfg.InsecureSigningKey = true
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
