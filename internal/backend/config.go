package backend

import (
	"fmt"
	"strings"

	"vogon/internal/config"
	"vogon/internal/core"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, source string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %s)",
			appConfig.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}

	c := Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		// Memory backend uses default data directory
		DataDirectory: "data",

		EventSource: source,

		DefaultCurrency: core.Currency(appConfig.DefaultCurrency),
		BatchSize:       appConfig.BalanceBatchSize,
		CacheSize:       appConfig.TransactionCacheSize,
		CacheTTL:        appConfig.TransactionCacheTTL,
	}
	if appConfig.AMQPEnabled() {
		c.AMQPURL = appConfig.AMQPURL
		c.AMQPExchange = appConfig.AMQPExchange
		c.AMQPQueue = appConfig.AMQPQueue
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %s)", c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}

	if c.DefaultCurrency != "" {
		if err := c.DefaultCurrency.Validate(); err != nil {
			return fmt.Errorf("default currency %q: %w", c.DefaultCurrency, err)
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
