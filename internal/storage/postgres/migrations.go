package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/common"
)

// migrationLockKey is the advisory lock held while the schema changes, so
// several processes starting at once apply each migration exactly once.
const migrationLockKey = 0x616d6d5f6d6967 // "amm_mig"

// Migration is one schema version. Down must undo Up.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger and pool schema",
		Up: `
		CREATE TABLE IF NOT EXISTS amm_assets (
			asset TEXT PRIMARY KEY,
			authority TEXT,
			supply NUMERIC(20, 0) NOT NULL DEFAULT 0 CHECK (supply >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS amm_balances (
			asset TEXT NOT NULL REFERENCES amm_assets(asset),
			owner TEXT NOT NULL,
			amount NUMERIC(20, 0) NOT NULL CHECK (amount > 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (asset, owner)
		);
		CREATE INDEX IF NOT EXISTS idx_amm_balances_owner ON amm_balances(owner);

		CREATE TABLE IF NOT EXISTS amm_pools (
			address TEXT PRIMARY KEY,
			seed NUMERIC(20, 0) NOT NULL,
			mint_x TEXT NOT NULL,
			mint_y TEXT NOT NULL,
			lp_mint TEXT UNIQUE NOT NULL,
			fee_bps INT NOT NULL CHECK (fee_bps BETWEEN 0 AND 10000),
			locked BOOLEAN NOT NULL,
			authority TEXT,
			config_bump SMALLINT NOT NULL,
			auth_bump SMALLINT NOT NULL,
			lp_bump SMALLINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_amm_pools_pair ON amm_pools(mint_x, mint_y);
		`,
		Down: `
		DROP TABLE IF EXISTS amm_pools;
		DROP TABLE IF EXISTS amm_balances;
		DROP TABLE IF EXISTS amm_assets;
		`,
	},
}

// MigrationStatus reports whether one migration has been applied.
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

// Migrator applies and reverts the schema versions in order.
type Migrator struct {
	common.LoggerMixin
	pool *pgxpool.Pool
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{LoggerMixin: common.NewLoggerMixin(), pool: pool}
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS amm_schema_migrations (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// locked runs fn in one transaction holding the migration lock, with the
// current schema version.
func (m *Migrator) locked(ctx context.Context, fn func(tx pgx.Tx, current int) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(migrationLockKey)); err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}
		if _, err := tx.Exec(ctx, createMigrationsTable); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}
		var current int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM amm_schema_migrations`).Scan(&current); err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		return fn(tx, current)
	})
}

// Up applies every migration newer than the current version.
func (m *Migrator) Up(ctx context.Context) error {
	applied := 0
	err := m.locked(ctx, func(tx pgx.Tx, current int) error {
		for _, mg := range migrations {
			if mg.Version <= current {
				continue
			}
			if _, err := tx.Exec(ctx, mg.Up); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", mg.Version, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO amm_schema_migrations (version, description) VALUES ($1, $2)`,
				mg.Version, mg.Description); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", mg.Version, err)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if applied > 0 {
		m.GetLogger().Info("applied migrations", zap.Int("count", applied))
	}
	return nil
}

// Down reverts the newest steps applied migrations.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	reverted := 0
	err := m.locked(ctx, func(tx pgx.Tx, current int) error {
		if current == 0 {
			return fmt.Errorf("no migrations to roll back")
		}
		for i := len(migrations) - 1; i >= 0 && reverted < steps; i-- {
			mg := migrations[i]
			if mg.Version > current {
				continue
			}
			if _, err := tx.Exec(ctx, mg.Down); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", mg.Version, err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM amm_schema_migrations WHERE version = $1`, mg.Version); err != nil {
				return fmt.Errorf("failed to remove migration record %d: %w", mg.Version, err)
			}
			reverted++
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.GetLogger().Info("rolled back migrations", zap.Int("count", reverted))
	return nil
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	var out []MigrationStatus
	err := m.locked(ctx, func(_ pgx.Tx, current int) error {
		out = make([]MigrationStatus, 0, len(migrations))
		for _, mg := range migrations {
			out = append(out, MigrationStatus{
				Version:     mg.Version,
				Description: mg.Description,
				Applied:     mg.Version <= current,
			})
		}
		return nil
	})
	return out, err
}
