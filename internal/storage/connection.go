package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/lugondev/go-amm/internal/config"
)

type DatabaseType string

const (
	DatabaseTypeMemory   DatabaseType = "memory"
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMongoDB  DatabaseType = "mongodb"
)

// ConnectionManager opens the backend named by database.type once and hands
// the same Store to every caller until Close.
type ConnectionManager struct {
	mu     sync.Mutex
	config *config.DatabaseConfig
	store  Store
}

func NewConnectionManager(cfg *config.DatabaseConfig) (*ConnectionManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	return &ConnectionManager{
		config: cfg,
	}, nil
}

func (cm *ConnectionManager) Connect(ctx context.Context) (Store, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.store != nil {
		return cm.store, nil
	}

	var store Store
	var err error

	switch DatabaseType(cm.config.Type) {
	case DatabaseTypeMemory, "":
		store, err = NewMemoryStoreFromConfig(ctx)
	case DatabaseTypePostgres:
		store, err = NewPostgresStoreFromConfig(ctx, &cm.config.Postgres)
	case DatabaseTypeMongoDB:
		store, err = NewMongoStoreFromConfig(ctx, &cm.config.MongoDB)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cm.config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cm.store = store
	return store, nil
}

func (cm *ConnectionManager) GetStore() (Store, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.store == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	return cm.store, nil
}

// Close releases the store. A later Connect opens a fresh one.
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.store == nil {
		return nil
	}
	err := cm.store.Close()
	cm.store = nil
	return err
}
