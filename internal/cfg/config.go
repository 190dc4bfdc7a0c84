// Package cfg provides configuration for the huntcore tools.
package cfg

import (
	"os"
	"strconv"
)

// Config holds progression core configuration.
type Config struct {
	// DBURL is the database URL (SQLite path or Postgres URL).
	DBURL string
	// AuditLimit is the default number of audit entries to list.
	AuditLimit int
	// Debug enables verbose logging.
	Debug bool
	// Version is the tool version string.
	Version string
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		DBURL:      getEnv("HUNTCORE_DB_URL", "huntcore.db"),
		AuditLimit: getEnvInt("HUNTCORE_AUDIT_LIMIT", 50),
		Debug:      getEnvBool("HUNTCORE_DEBUG", false),
		Version:    getEnv("HUNTCORE_VERSION", "0.1.0"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
