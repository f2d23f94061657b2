// Package config loads application settings from defaults, config files,
// .env files and LEDGER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"shopdesk/ledger-csv/internal/fileutils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	// Logger is used only while bootstrapping, before the configured logger exists.
	Logger = logrus.New()
)

// LoadEnv loads environment variables from a .env file if one exists in the
// current directory or its parent. Variables already set are not overridden.
func LoadEnv() {
	once.Do(func() {
		envFile := ".env"
		if !fileutils.FileExists(envFile) {
			envFile = filepath.Join("..", ".env")
			if !fileutils.FileExists(envFile) {
				Logger.Debug("No .env file found, using environment variables")
				return
			}
		}

		if err := godotenv.Load(envFile); err != nil {
			Logger.Warnf("Error loading .env file: %v", err)
			return
		}
		Logger.Debugf("Loaded environment variables from %s", envFile)
	})
}

// GetEnv retrieves an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// Load reads .env first so its values take part in the viper lookup.
func Load() (*Config, error) {
	LoadEnv()
	return InitializeConfig()
}

// BackendTimeout returns the per-request timeout for the backend client.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// DelimiterRune returns the configured CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.CSV.Delimiter {
		return r
	}
	return ','
}
