package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the configured store and, when an AMQP URL is set, the
// event publisher. A broker that cannot be reached only disables events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result = &BackendResult{}
		closer func() error
		err    error
	)
	switch config.Type {
	case JSONBackend:
		result.Store = f.createJSONBackend(ctx, config)
	case SQLiteBackend:
		var store *storage.SQLiteStore
		store, err = f.createSQLiteBackend(ctx, config)
		if err != nil {
			return nil, err
		}
		result.Store, closer = store, store.Close
	case MemoryBackend:
		result.Store = storage.NewMemoryStore(nil)
		f.logger.WarnContext(ctx, "Initialized memory backend, data will not survive a restart")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var client *amqp.Client
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			client = nil
		} else {
			result.Events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if closer != nil {
			if err := closer(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		if client != nil {
			if err := client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) createJSONBackend(ctx context.Context, config Config) storage.Store {
	store := storage.NewFileStore(config.DataFile, storage.WithQuarantine(config.QuarantineCorrupt))
	f.logger.WithComponent(log.ComponentStorage).InfoContext(ctx, "Initialized JSON file backend",
		log.FieldPath, store.Path(),
		"quarantine", config.QuarantineCorrupt)
	return store
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	if config.SnapshotRetention > 0 {
		store.SetRetention(config.SnapshotRetention)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"retention", config.SnapshotRetention)
	return store, nil
}
