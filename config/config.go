// Package config provides configuration for the harness process.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the process configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	MockAPIPort int

	// Database
	DatabaseURL string

	// External collaborators
	MockAPIURL string
	AgentURL   string

	// Timeouts
	AgentTimeout time.Duration
	ToolTimeout  time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		MockAPIPort:  getEnvInt("MOCKAPI_PORT", 8000),
		DatabaseURL:  getEnv("CELLSIGHT_DB", "file:cellsight.db?cache=shared&mode=rwc"),
		MockAPIURL:   getEnv("MOCKAPI_URL", ""),
		AgentURL:     getEnv("AGENT_URL", ""),
		AgentTimeout: time.Duration(getEnvInt("AGENT_TIMEOUT_MS", 300000)) * time.Millisecond,
		ToolTimeout:  time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
