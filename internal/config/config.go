package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"vogon/internal/core"
	"vogon/internal/log"
)

var validBackends = []string{"memory", "sqlite"}

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP, publishing is disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	DefaultCurrency      string
	BalanceBatchSize     int
	TransactionCacheSize int
	TransactionCacheTTL  time.Duration

	// Worker
	ReconcileInterval time.Duration

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string

	LogLevel string
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/vogon.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vogon"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		DefaultCurrency:      strings.ToUpper(getEnv("DEFAULT_CURRENCY", "EUR")),
		BalanceBatchSize:     getEnvInt("BALANCE_BATCH_SIZE", 100),
		TransactionCacheSize: getEnvInt("TRANSACTION_CACHE_SIZE", 256),
		TransactionCacheTTL:  getEnvDuration("TRANSACTION_CACHE_TTL", 10*time.Minute),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 30*time.Second),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// AMQPEnabled reports whether change events should go to a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if err := core.Currency(c.DefaultCurrency).Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be an ISO 4217 code", c.DefaultCurrency))
	}

	if c.BalanceBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid balance batch size %d: must be at least 1", c.BalanceBatchSize))
	} else if c.BalanceBatchSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid balance batch size %d: must be at most 10000", c.BalanceBatchSize))
	}

	if c.TransactionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid transaction cache size %d: must be at least 1", c.TransactionCacheSize))
	}
	if c.TransactionCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid transaction cache TTL %v: must be at least 1 second", c.TransactionCacheTTL))
	}

	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
