package postgres

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/config"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	dsn := os.Getenv("AMM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_POSTGRES_DSN not set")
	}

	store, err := NewStoreFromDSN(context.Background(), dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLedgerRoundTripsFullRange(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	asset, alice := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, store.Fund(ctx, asset, alice, math.MaxUint64))

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		bal, err := tx.Ledger().Balance(ctx, asset, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), bal)

		supply, err := tx.Ledger().Supply(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), supply)
		return nil
	}))

	err := store.Fund(ctx, asset, alice, 1)
	require.ErrorIs(t, err, ammerrors.ErrArithmeticOverflow)
}

func TestAtomicRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	asset := solana.NewWallet().PublicKey()
	alice, bob := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, store.Fund(ctx, asset, alice, 100))

	err := store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Ledger().Move(ctx, asset, alice, bob, 40, alice); err != nil {
			return err
		}
		return tx.Ledger().Move(ctx, asset, bob, alice, 41, bob)
	})
	require.ErrorIs(t, err, ammerrors.ErrInsufficientBalance)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		bal, err := tx.Ledger().Balance(ctx, asset, bob)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	}))
}

func TestMintRequiresAuthority(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	lp, auth, user := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Ledger().(*pgLedger).CreateAsset(ctx, lp, auth)
	}))

	err := store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Ledger().Mint(ctx, lp, user, 5, user)
	})
	require.ErrorIs(t, err, ammerrors.ErrUnauthorized)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Ledger().Mint(ctx, lp, user, 5, auth); err != nil {
			return err
		}
		return tx.Ledger().Burn(ctx, lp, user, 2, user)
	}))

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		supply, err := tx.Ledger().Supply(ctx, lp)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), supply)
		return nil
	}))
}

func TestPoolRepository(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	program := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	admin := solana.NewWallet().PublicKey()
	cfg, err := pool.New(program, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), math.MaxUint64, 30, &admin)
	require.NoError(t, err)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Pools().Create(ctx, cfg)
	}))

	err = store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Pools().Create(ctx, cfg)
	})
	require.ErrorIs(t, err, ammerrors.ErrPoolExists)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Pools().Get(ctx, cfg.Address)
		if err != nil {
			return err
		}
		assert.Equal(t, cfg, got)

		got.Locked = true
		got.Authority = nil
		return tx.Pools().Update(ctx, got)
	}))

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Pools().Get(ctx, cfg.Address)
		if err != nil {
			return err
		}
		assert.True(t, got.Locked)
		assert.Nil(t, got.Authority)
		return nil
	}))

	err = store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.Pools().Get(ctx, solana.NewWallet().PublicKey())
		return err
	})
	require.ErrorIs(t, err, ammerrors.ErrPoolNotFound)
}

func TestMigratorStatus(t *testing.T) {
	store := setupTestStore(t)

	status, err := NewMigrator(store.pool).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, len(migrations))
	for _, s := range status {
		assert.True(t, s.Applied, "migration %d", s.Version)
	}
}

func TestMigratorDownThenUp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	m := store.Migrator()

	require.NoError(t, m.Down(ctx, 1))
	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[len(status)-1].Applied)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx), "up is idempotent")
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status[len(status)-1].Applied)
}
