package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vogon/internal/amqp"
	"vogon/internal/cache"
	"vogon/internal/events"
	"vogon/internal/log"
	"vogon/internal/services"
	"vogon/internal/storage"
	"vogon/internal/storage/memory"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(log.FieldComponent, log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	var client *amqp.Client
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events",
				log.FieldError, err)
			client = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	size, ttl := config.CacheSize, config.CacheTTL
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	views := cache.NewLRUCache[int64, services.TransactionView](size, ttl)
	caches := cache.NewManager()
	caches.Register(views)

	var publisher *amqp.Client
	if !config.DisablePublishing {
		publisher = client
	}
	dispatcher := events.NewDispatcher(events.Forwarder{
		Sink: f.eventSink(ctx, publisher, config.EventSource),
	}.Handlers())

	ledger, err := services.NewLedgerService(ctx, store, dispatcher, services.Options{
		BatchSize:       config.BatchSize,
		DefaultCurrency: config.DefaultCurrency,
		Cache:           views,
	})
	if err != nil {
		store.Close()
		if client != nil {
			client.Close()
		}
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	f.logger.Info("Initialized ledger backend",
		"type", config.Type.String(),
		"amqp_enabled", client != nil,
		log.FieldBatchSize, ledger.BatchSize())

	return &BackendResult{
		Ledger:    ledger,
		Publisher: client,
		Caches:    caches,
		Cleanup: func() error {
			caches.Stop()
			st := views.Stats()
			f.logger.Debug("Transaction view cache",
				"hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions)
			var errs []error
			if client != nil {
				errs = append(errs, client.Close())
			}
			errs = append(errs, ledger.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory store", "data_directory", dataDir)
		return memory.NewFromFiles(dataDir), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// eventSink logs every ledger event and forwards it to the publisher when
// one is configured.
func (f *DefaultFactory) eventSink(ctx context.Context, publisher *amqp.Client, source string) func(events.Event) {
	var publish func(events.Event)
	if publisher != nil {
		publish = publisher.Sink(ctx, source)
	}
	return func(e events.Event) {
		f.logger.DebugContext(ctx, "Ledger event", log.FieldEvent, e.String())
		if publish != nil {
			publish(e)
		}
	}
}
