package anchor

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

// ConfigAccountDiscriminator prefixes the on-chain pool config account,
// sha256("account:Config")[:8].
var ConfigAccountDiscriminator = func() Discriminator {
	hash := sha256.Sum256([]byte("account:Config"))
	var d Discriminator
	copy(d[:], hash[:DiscriminatorLength])
	return d
}()

// ConfigAccount is the Borsh layout of the on-chain pool config.
type ConfigAccount struct {
	Seed       uint64
	Authority  *solana.PublicKey `bin:"optional"`
	MintX      solana.PublicKey
	MintY      solana.PublicKey
	Fee        uint16
	Locked     bool
	ConfigBump uint8
	AuthBump   uint8
	LPBump     uint8
}

// DecodeConfigAccount parses the account stored at address into a pool config.
// The pool addresses are derived again from the stored mints and seed; an
// account whose address or bumps disagree with them is rejected. The LP mint
// is not stored on chain and comes from the same derivation.
func DecodeConfigAccount(programID, address solana.PublicKey, data []byte) (*pool.Config, error) {
	if len(data) < DiscriminatorLength || !bytes.Equal(data[:DiscriminatorLength], ConfigAccountDiscriminator[:]) {
		return nil, fmt.Errorf("account %s is not a pool config", address)
	}

	var acc ConfigAccount
	if err := bin.UnmarshalBorsh(&acc, data[DiscriminatorLength:]); err != nil {
		return nil, fmt.Errorf("failed to decode pool config %s: %w", address, err)
	}

	addrs, err := pool.Derive(programID, acc.MintX, acc.MintY, acc.Seed)
	if err != nil {
		return nil, err
	}
	switch {
	case !addrs.Config.Equals(address):
		return nil, ammerrors.ErrInvalidConfig.Wrapf("account %s is not the config of seed %d, expected %s",
			address, acc.Seed, addrs.Config)
	case addrs.ConfigBump != acc.ConfigBump:
		return nil, ammerrors.ErrInvalidConfig.Wrapf("config bump %d, expected %d", acc.ConfigBump, addrs.ConfigBump)
	case addrs.Authority.Bump != acc.AuthBump:
		return nil, ammerrors.ErrInvalidConfig.Wrapf("auth bump %d, expected %d", acc.AuthBump, addrs.Authority.Bump)
	case addrs.LPBump != acc.LPBump:
		return nil, ammerrors.ErrInvalidConfig.Wrapf("lp bump %d, expected %d", acc.LPBump, addrs.LPBump)
	}

	cfg := &pool.Config{
		Address:    address,
		Seed:       acc.Seed,
		MintX:      acc.MintX,
		MintY:      acc.MintY,
		LPMint:     addrs.LPMint,
		FeeBps:     acc.Fee,
		Locked:     acc.Locked,
		Authority:  acc.Authority,
		ConfigBump: acc.ConfigBump,
		AuthBump:   acc.AuthBump,
		LPBump:     acc.LPBump,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfigAccount is the inverse of DecodeConfigAccount.
func EncodeConfigAccount(cfg *pool.Config) ([]byte, error) {
	data, err := bin.MarshalBorsh(&ConfigAccount{
		Seed:       cfg.Seed,
		Authority:  cfg.Authority,
		MintX:      cfg.MintX,
		MintY:      cfg.MintY,
		Fee:        cfg.FeeBps,
		Locked:     cfg.Locked,
		ConfigBump: cfg.ConfigBump,
		AuthBump:   cfg.AuthBump,
		LPBump:     cfg.LPBump,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode pool config: %w", err)
	}
	return append(ConfigAccountDiscriminator[:], data...), nil
}
