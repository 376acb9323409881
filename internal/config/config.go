// Package config loads application configuration from the environment and
// strategy presets from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for databases and the historical cache (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	Timezone  string // IANA name for the market timezone, informational only
	ScanCron  string // cron expression for the live scan job
	MinWeight float64

	SenderEnabled bool
	SenderName    string // registered sink name, "log" or "null"

	QuoteBaseURL    string
	QuoteTimeoutSec int

	PresetsPath string // optional YAML file overriding the built-in strategy presets
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("ARBSCAN_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("ARBSCAN_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Timezone:        getEnv("MARKET_TIMEZONE", "Asia/Shanghai"),
		ScanCron:        getEnv("SCAN_CRON", "*/10 * 9-15 * * MON-FRI"),
		MinWeight:       getEnvAsFloat("MIN_WEIGHT", 0.03),
		SenderEnabled:   getEnvAsBool("SENDER_ENABLED", true),
		SenderName:      getEnv("SENDER_NAME", "log"),
		QuoteBaseURL:    getEnv("QUOTE_BASE_URL", "https://qt.gtimg.cn"),
		QuoteTimeoutSec: getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 5),
		PresetsPath:     getEnv("PRESETS_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MinWeight < 0 || c.MinWeight > 1 {
		return fmt.Errorf("min weight %.4f outside [0,1]", c.MinWeight)
	}
	return nil
}

// DatabasePath returns the on-disk path for a named database.
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// CacheDir returns the directory holding historical quote cache files.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
