package ledger

import (
	"context"
	stdmath "math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestMemoryMove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	asset, alice, bob := newKey(), newKey(), newKey()
	require.NoError(t, m.Fund(asset, alice, 100))

	require.NoError(t, m.Move(ctx, asset, alice, bob, 40, alice))

	bal, err := m.Balance(ctx, asset, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), bal)
	bal, err = m.Balance(ctx, asset, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), bal)

	supply, err := m.Supply(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), supply)
}

func TestMemoryMoveFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	asset, alice, bob := newKey(), newKey(), newKey()
	require.NoError(t, m.Fund(asset, alice, 10))

	require.ErrorIs(t, m.Move(ctx, asset, alice, bob, 1, bob), ammerrors.ErrUnauthorized)
	require.ErrorIs(t, m.Move(ctx, asset, alice, bob, 11, alice), ammerrors.ErrInsufficientBalance)
	require.ErrorIs(t, m.Move(ctx, newKey(), alice, bob, 1, alice), ammerrors.ErrInvalidAsset)

	require.ErrorIs(t, m.Fund(asset, bob, stdmath.MaxUint64-9), ammerrors.ErrArithmeticOverflow)
}

func TestMemoryMintBurn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lp, authority, alice := newKey(), newKey(), newKey()
	require.NoError(t, m.CreateAsset(ctx, lp, authority))
	require.ErrorIs(t, m.CreateAsset(ctx, lp, authority), ammerrors.ErrInvalidAsset)

	require.ErrorIs(t, m.Mint(ctx, lp, alice, 5, alice), ammerrors.ErrUnauthorized)
	require.NoError(t, m.Mint(ctx, lp, alice, 5, authority))

	require.ErrorIs(t, m.Burn(ctx, lp, alice, 1, authority), ammerrors.ErrUnauthorized)
	require.ErrorIs(t, m.Burn(ctx, lp, alice, 6, alice), ammerrors.ErrInsufficientBalance)
	require.NoError(t, m.Burn(ctx, lp, alice, 5, alice))

	supply, err := m.Supply(ctx, lp)
	require.NoError(t, err)
	assert.Zero(t, supply)
	assert.Empty(t, m.Accounts())
}

func TestMemoryFundedAssetHasNoMintAuthority(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	asset, alice := newKey(), newKey()
	require.NoError(t, m.Fund(asset, alice, 1))

	require.ErrorIs(t, m.Mint(ctx, asset, alice, 1, solana.PublicKey{}), ammerrors.ErrUnauthorized)
}

func TestMemoryCloneIsIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	asset, alice, bob := newKey(), newKey(), newKey()
	require.NoError(t, m.Fund(asset, alice, 10))

	cp := m.Clone()
	require.NoError(t, cp.Move(ctx, asset, alice, bob, 10, alice))

	bal, err := m.Balance(ctx, asset, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)
}

func TestSortedKeys(t *testing.T) {
	m := NewMemory()
	a, b := newKey(), newKey()
	require.NoError(t, m.Fund(a, b, 1))
	require.NoError(t, m.Fund(b, a, 1))
	require.NoError(t, m.Fund(a, a, 1))

	keys := SortedKeys(m.Accounts())
	require.Len(t, keys, 3)
	for i := 1; i < len(keys); i++ {
		prev, cur := keys[i-1], keys[i]
		assert.True(t, prev.Asset.String() < cur.Asset.String() ||
			(prev.Asset == cur.Asset && prev.Owner.String() < cur.Owner.String()))
	}
}
