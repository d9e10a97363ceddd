// Package postgres implements storage.Store on PostgreSQL.
//
// Every Atomic call runs in a SERIALIZABLE transaction and the rows it
// mutates are taken FOR UPDATE. Serialization failures are retried a bounded
// number of times before being returned to the caller.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

// maxSerializationRetries bounds how often an Atomic call is replayed after
// the database aborts it with a serialization failure.
const maxSerializationRetries = 5

const codeSerializationFailure = "40001"

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	common.LoggerMixin
	pool *pgxpool.Pool
}

// NewStore connects using cfg, applies pending migrations and returns the store.
func NewStore(ctx context.Context, cfg *config.PostgresConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
	}
	poolConfig.HealthCheckPeriod = time.Minute

	return newStore(ctx, poolConfig)
}

// NewStoreFromDSN is NewStore for a ready-made connection string.
func NewStoreFromDSN(ctx context.Context, dsn string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return newStore(ctx, poolConfig)
}

func newStore(ctx context.Context, poolConfig *pgxpool.Config) (*Store, error) {
	pgPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		LoggerMixin: common.NewLoggerMixin(),
		pool:        pgPool,
	}

	if err := NewMigrator(pgPool).Up(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Atomic implements storage.Store.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}

	var err error
	for attempt := 1; attempt <= maxSerializationRetries; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
			return fn(ctx, &pgTx{ledger: &pgLedger{tx: tx}, pools: &pgPools{tx: tx}})
		})
		if !isSerializationFailure(err) {
			return err
		}
		s.GetLogger().Debug("retrying serialization failure", zap.Int("attempt", attempt), zap.Error(err))
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", maxSerializationRetries, err)
}

// Fund credits owner with amount of an external asset in its own transaction.
func (s *Store) Fund(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	return s.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.(*pgTx).ledger.Fund(ctx, asset, owner, amount)
	})
}

// Migrator returns a migrator over the store's connection pool.
func (s *Store) Migrator() *Migrator {
	m := NewMigrator(s.pool)
	m.SetLogger(s.GetLogger())
	return m
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeSerializationFailure
}

type pgTx struct {
	ledger *pgLedger
	pools  *pgPools
}

func (t *pgTx) Ledger() ledger.Ledger   { return t.ledger }
func (t *pgTx) Pools() pool.Repository { return t.pools }

func init() {
	storage.RegisterPostgresFactory(func(ctx context.Context, cfg *config.PostgresConfig) (storage.Store, error) {
		store, err := NewStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return store, nil
	})
}

var _ storage.Store = (*Store)(nil)
