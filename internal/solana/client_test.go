package solana

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/decoder/anchor"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

var testProgram = solana.MustPublicKeyFromBase58(config.DefaultProgramID)

func newTestPool(t *testing.T, f *fakeRPC) *pool.Config {
	t.Helper()

	admin := solana.NewWallet().PublicKey()
	cfg, err := pool.New(testProgram, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 7, 30, &admin)
	require.NoError(t, err)

	data, err := anchor.EncodeConfigAccount(cfg)
	require.NoError(t, err)
	f.accounts[cfg.Address] = &rpc.Account{
		Owner: testProgram,
		Data:  rpc.DataBytesOrJSONFromBytes(data),
	}
	return cfg
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClientWithRPC(newFakeRPC(), config.SolanaConfig{})
	assert.Equal(t, rpc.CommitmentConfirmed, c.commitment)
	assert.Zero(t, c.timeout)

	c = NewClientWithRPC(newFakeRPC(), config.SolanaConfig{Commitment: "finalized", Timeout: 5})
	assert.Equal(t, rpc.CommitmentFinalized, c.commitment)
	assert.Equal(t, 5.0, c.timeout.Seconds())
}

func TestTokenBalanceAndSupply(t *testing.T) {
	f := newFakeRPC()
	c := NewClientWithRPC(f, config.SolanaConfig{})
	ctx := context.Background()

	account := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	f.balances[account] = 18_446_744_073_709_551_615
	f.supplies[mint] = 42

	amount, decimals, err := c.TokenBalance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(18_446_744_073_709_551_615), amount)
	assert.Equal(t, uint8(6), decimals)

	supply, _, err := c.TokenSupply(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), supply)

	_, _, err = c.TokenBalance(ctx, solana.NewWallet().PublicKey())
	require.Error(t, err)
}

func TestParseTokenAmount(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	_, _, err := parseTokenAmount(nil, key)
	require.Error(t, err)

	_, _, err = parseTokenAmount(&rpc.UiTokenAmount{Amount: "1.5"}, key)
	require.Error(t, err)

	_, _, err = parseTokenAmount(&rpc.UiTokenAmount{Amount: "18446744073709551616"}, key)
	require.Error(t, err)
}

func TestPoolConfig(t *testing.T) {
	f := newFakeRPC()
	c := NewClientWithRPC(f, config.SolanaConfig{})
	ctx := context.Background()
	want := newTestPool(t, f)

	got, err := c.PoolConfig(ctx, testProgram, want.Address)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("missing account", func(t *testing.T) {
		_, err := c.PoolConfig(ctx, testProgram, solana.NewWallet().PublicKey())
		require.ErrorIs(t, err, ammerrors.ErrPoolNotFound)
	})

	t.Run("foreign owner", func(t *testing.T) {
		f.accounts[want.Address].Owner = solana.SystemProgramID
		defer func() { f.accounts[want.Address].Owner = testProgram }()

		_, err := c.PoolConfig(ctx, testProgram, want.Address)
		require.ErrorIs(t, err, ammerrors.ErrPoolNotFound)
	})
}

func TestGetLatestBlockhash(t *testing.T) {
	f := newFakeRPC()
	c := NewClientWithRPC(f, config.SolanaConfig{})

	_, err := c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)

	f.blockErr = errors.New("connection refused")
	_, err = c.GetLatestBlockhash(context.Background())
	require.ErrorContains(t, err, "connection refused")
}
