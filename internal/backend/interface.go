// Package backend assembles a ledger from configuration: the store, the
// optional AMQP publisher and the transaction view cache.
package backend

import (
	"context"
	"time"

	"vogon/internal/amqp"
	"vogon/internal/cache"
	"vogon/internal/core"
	"vogon/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the assembled ledger and its cleanup function.
type BackendResult struct {
	Ledger *services.LedgerService
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher *amqp.Client
	// Caches holds the caches that need periodic expiry.
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific, seed files are read from here
	DataDirectory string

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// EventSource tags published messages with the producing process.
	EventSource string
	// DisablePublishing keeps the AMQP client for consuming only.
	DisablePublishing bool

	DefaultCurrency core.Currency
	BatchSize       int
	CacheSize       int
	CacheTTL        time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
