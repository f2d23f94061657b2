// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Finance store drivers.
const (
	FinanceDriverHTTP   = "http"
	FinanceDriverSheets = "sheets"
	FinanceDriverFile   = "file"
)

// Product encodings accepted by backend.item_format.
const (
	ItemFormatV2     = "v2"
	ItemFormatLegacy = "legacy"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
		DateFormat string `mapstructure:"date_format" yaml:"date_format"`
		QuoteAll   bool   `mapstructure:"quote_all" yaml:"quote_all"`
	} `mapstructure:"csv" yaml:"csv"`

	Backend struct {
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		DebtsPath      string `mapstructure:"debts_path" yaml:"debts_path"`
		ShipmentsPath  string `mapstructure:"shipments_path" yaml:"shipments_path"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
		ShopID         string `mapstructure:"shop_id" yaml:"shop_id"`
		ItemFormat     string `mapstructure:"item_format" yaml:"item_format"`
	} `mapstructure:"backend" yaml:"backend"`

	Session struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"session" yaml:"session"`

	Finance struct {
		Driver          string `mapstructure:"driver" yaml:"driver"`
		URL             string `mapstructure:"url" yaml:"url"`
		File            string `mapstructure:"file" yaml:"file"`
		SpreadsheetID   string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
		Sheet           string `mapstructure:"sheet" yaml:"sheet"`
		CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	} `mapstructure:"finance" yaml:"finance"`

	Report struct {
		Locale   string `mapstructure:"locale" yaml:"locale"`
		Currency string `mapstructure:"currency" yaml:"currency"`
	} `mapstructure:"report" yaml:"report"`

	Dashboard struct {
		Addr        string   `mapstructure:"addr" yaml:"addr"`
		CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	} `mapstructure:"dashboard" yaml:"dashboard"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(GetEnv("LEDGER_CONFIG_DIR", "$HOME/.ledger-csv"))
	v.AddConfigPath(".ledger-csv")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&config)

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.date_format", "2006-01-02")
	v.SetDefault("csv.quote_all", true)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.debts_path", "/api/debts")
	v.SetDefault("backend.shipments_path", "/api/wagons")
	v.SetDefault("backend.timeout_seconds", 15)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.shop_id", "")
	v.SetDefault("backend.item_format", ItemFormatV2)

	v.SetDefault("session.file", "~/.ledger-csv/session.yaml")

	v.SetDefault("finance.driver", FinanceDriverFile)
	v.SetDefault("finance.url", "")
	v.SetDefault("finance.file", "~/.ledger-csv/finance.yaml")
	v.SetDefault("finance.spreadsheet_id", "")
	v.SetDefault("finance.sheet", "Finance")
	v.SetDefault("finance.credentials_file", "")

	v.SetDefault("report.locale", "en")
	v.SetDefault("report.currency", "")

	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.cors_origins", []string{})
}

func normalize(config *Config) {
	config.Log.Level = strings.ToLower(strings.TrimSpace(config.Log.Level))
	config.Log.Format = strings.ToLower(strings.TrimSpace(config.Log.Format))
	config.Finance.Driver = strings.ToLower(strings.TrimSpace(config.Finance.Driver))
	config.Backend.ItemFormat = strings.ToLower(strings.TrimSpace(config.Backend.ItemFormat))
	config.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(config.Backend.BaseURL), "/")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len([]rune(config.CSV.Delimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	if config.Backend.BaseURL != "" &&
		!strings.HasPrefix(config.Backend.BaseURL, "http://") &&
		!strings.HasPrefix(config.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got: %s", config.Backend.BaseURL)
	}

	if config.Backend.TimeoutSeconds < 1 || config.Backend.TimeoutSeconds > 300 {
		return fmt.Errorf("backend.timeout_seconds must be between 1 and 300, got: %d", config.Backend.TimeoutSeconds)
	}

	if config.Backend.MaxRetries < 0 || config.Backend.MaxRetries > 10 {
		return fmt.Errorf("backend.max_retries must be between 0 and 10, got: %d", config.Backend.MaxRetries)
	}

	if config.Backend.ItemFormat != ItemFormatV2 && config.Backend.ItemFormat != ItemFormatLegacy {
		return fmt.Errorf("invalid backend.item_format: %s (must be 'v2' or 'legacy')", config.Backend.ItemFormat)
	}

	if _, err := language.Parse(config.Report.Locale); err != nil {
		return fmt.Errorf("invalid report locale: %s", config.Report.Locale)
	}

	switch config.Finance.Driver {
	case FinanceDriverHTTP:
		if config.Finance.URL == "" {
			return fmt.Errorf("finance.url required when finance.driver is %q", FinanceDriverHTTP)
		}
	case FinanceDriverSheets:
		if config.Finance.SpreadsheetID == "" {
			return fmt.Errorf("finance.spreadsheet_id required when finance.driver is %q", FinanceDriverSheets)
		}
	case FinanceDriverFile:
		if config.Finance.File == "" {
			return fmt.Errorf("finance.file required when finance.driver is %q", FinanceDriverFile)
		}
	default:
		return fmt.Errorf("invalid finance driver: %s (must be 'http', 'sheets' or 'file')", config.Finance.Driver)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
