package anchor

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/config"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, "afaf6d1f0d989bed", InitializeDiscriminator.String())

	for _, name := range []string{"initialize", "deposit", "withdraw", "swap"} {
		hash := sha256.Sum256([]byte("global:" + name))
		d := ComputeDiscriminator(name)
		assert.Equal(t, hash[:8], d[:], name)
	}
}

func TestDepositLayout(t *testing.T) {
	data, err := Encode(&DepositArgs{Amount: 1, MaxX: 2, MaxY: 3, Expiration: -1})
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+8+8)

	assert.Equal(t, DepositDiscriminator[:], data[:8])
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[8:]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[16:]))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[24:]))
	assert.Equal(t, ^uint64(0), binary.LittleEndian.Uint64(data[32:]))
}

func TestInitializeOptionalAuthority(t *testing.T) {
	data, err := Encode(&InitializeArgs{Seed: 42, Fee: 30})
	require.NoError(t, err)
	assert.Len(t, data, 8+8+2+1)
	assert.Equal(t, byte(0), data[len(data)-1])

	admin := solana.NewWallet().PublicKey()
	data, err = Encode(&InitializeArgs{Seed: 42, Fee: 30, Authority: &admin})
	require.NoError(t, err)
	assert.Len(t, data, 8+8+2+1+32)

	ix, err := Decode(data)
	require.NoError(t, err)
	got, ok := ix.(*InitializeArgs)
	require.True(t, ok)
	require.NotNil(t, got.Authority)
	assert.Equal(t, admin, *got.Authority)
	assert.Equal(t, uint16(30), got.Fee)
}

func TestRoundTrip(t *testing.T) {
	tests := []Instruction{
		&InitializeArgs{Seed: 1<<63 + 5, Fee: 10_000},
		&DepositArgs{Amount: 10, MaxX: 20, MaxY: 30, Expiration: 1_700_000_000},
		&WithdrawArgs{Amount: 10, MinX: 1, MinY: 2, Expiration: 1_700_000_000},
		&SwapArgs{IsX: true, Amount: 100, Min: 90, Expiration: 1_700_000_000},
		&SwapArgs{Amount: 1, Min: 1},
	}

	for _, want := range tests {
		t.Run(want.Name(), func(t *testing.T) {
			data, err := Encode(want)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)

	_, err = Decode(make([]byte, 16))
	require.ErrorContains(t, err, "unknown instruction discriminator")

	_, err = Decode(SwapDiscriminator[:])
	require.Error(t, err, "missing arguments")
}

func TestRequestBinding(t *testing.T) {
	p, u := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	req := (&SwapArgs{IsX: true, Amount: 5, Min: 4, Expiration: 9}).Request(p, u)
	assert.Equal(t, p, req.Pool)
	assert.Equal(t, u, req.User)
	assert.Equal(t, uint64(4), req.MinOut)
	assert.True(t, req.IsX)
}

func TestBuild(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	cfg, err := pool.New(program, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1, 30, nil)
	require.NoError(t, err)
	user := solana.NewWallet().PublicKey()

	accounts, err := NewPoolAccounts(program, user, cfg)
	require.NoError(t, err)

	ix, err := Build(program, accounts, &DepositArgs{Amount: 1, MaxX: 1, MaxY: 1, Expiration: 1})
	require.NoError(t, err)
	assert.Equal(t, program, ix.ProgramID())

	metas := ix.Accounts()
	require.Len(t, metas, 14)
	assert.Equal(t, user, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, accounts.UserLP, metas[8].PublicKey)
	assert.True(t, metas[8].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, DepositDiscriminator[:], data[:8])

	swap, err := Build(program, accounts, &SwapArgs{Amount: 1, Min: 1})
	require.NoError(t, err)
	assert.Len(t, swap.Accounts(), 12)
}

func TestConfigAccountRoundTrip(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	admin := solana.NewWallet().PublicKey()
	cfg, err := pool.New(program, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 99, 25, &admin)
	require.NoError(t, err)
	cfg.Locked = true

	data, err := EncodeConfigAccount(cfg)
	require.NoError(t, err)
	assert.Len(t, data, 8+8+1+32+32+32+2+1+3)

	got, err := DecodeConfigAccount(program, cfg.Address, data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = DecodeConfigAccount(program, cfg.Address, data[8:])
	require.Error(t, err)
}

// configBytes lays out a config account field by field.
func configBytes(cfg *pool.Config, configBump, authBump, lpBump uint8) []byte {
	data := append([]byte{}, ConfigAccountDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, cfg.Seed)
	if cfg.Authority != nil {
		data = append(data, 1)
		data = append(data, cfg.Authority.Bytes()...)
	} else {
		data = append(data, 0)
	}
	data = append(data, cfg.MintX.Bytes()...)
	data = append(data, cfg.MintY.Bytes()...)
	data = binary.LittleEndian.AppendUint16(data, cfg.FeeBps)
	data = append(data, 0)
	if cfg.Locked {
		data[len(data)-1] = 1
	}
	return append(data, configBump, authBump, lpBump)
}

func TestDecodeConfigAccountLayout(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	admin := solana.NewWallet().PublicKey()
	mintX, mintY := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	// Find a pool whose config and auth bumps differ, so a swapped field
	// order cannot decode cleanly.
	var cfg *pool.Config
	for seed := uint64(0); seed < 1024; seed++ {
		c, err := pool.New(program, mintX, mintY, seed, 25, &admin)
		require.NoError(t, err)
		if c.ConfigBump != c.AuthBump {
			cfg = c
			break
		}
	}
	require.NotNil(t, cfg)

	t.Run("documented order", func(t *testing.T) {
		data := configBytes(cfg, cfg.ConfigBump, cfg.AuthBump, cfg.LPBump)
		got, err := DecodeConfigAccount(program, cfg.Address, data)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)

		encoded, err := EncodeConfigAccount(cfg)
		require.NoError(t, err)
		assert.Equal(t, data, encoded)
	})

	t.Run("swapped bumps", func(t *testing.T) {
		_, err := DecodeConfigAccount(program, cfg.Address, configBytes(cfg, cfg.AuthBump, cfg.ConfigBump, cfg.LPBump))
		require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)
	})

	t.Run("wrong lp bump", func(t *testing.T) {
		_, err := DecodeConfigAccount(program, cfg.Address, configBytes(cfg, cfg.ConfigBump, cfg.AuthBump, cfg.LPBump-1))
		require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)
	})

	t.Run("wrong address", func(t *testing.T) {
		data := configBytes(cfg, cfg.ConfigBump, cfg.AuthBump, cfg.LPBump)
		_, err := DecodeConfigAccount(program, solana.NewWallet().PublicKey(), data)
		require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)
	})

	t.Run("other seed", func(t *testing.T) {
		other := *cfg
		other.Seed++
		_, err := DecodeConfigAccount(program, cfg.Address, configBytes(&other, cfg.ConfigBump, cfg.AuthBump, cfg.LPBump))
		require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)
	})
}
