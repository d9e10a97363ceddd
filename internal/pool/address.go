package pool

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

// Seeds used to derive pool addresses.
var (
	ConfigSeed    = []byte("config")
	AuthoritySeed = []byte("auth")
	LPMintSeed    = []byte("lp")
)

// Authority is the capability the core presents to move pool-owned funds and
// to mint liquidity shares.
type Authority struct {
	Address solana.PublicKey
	Bump    uint8
}

// Addresses are all the keys derived for one pool.
type Addresses struct {
	Config     solana.PublicKey
	ConfigBump uint8
	Authority  Authority
	LPMint     solana.PublicKey
	LPBump     uint8
}

// SeedBytes encodes a pool seed the way it appears in derivation seeds.
func SeedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}

// Derive computes the config, authority and LP mint addresses of the pool
// identified by (mintX, mintY, seed) under programID.
func Derive(programID, mintX, mintY solana.PublicKey, seed uint64) (*Addresses, error) {
	cfg, cfgBump, err := solana.FindProgramAddress(
		[][]byte{ConfigSeed, mintX.Bytes(), mintY.Bytes(), SeedBytes(seed)},
		programID,
	)
	if err != nil {
		return nil, ammerrors.Wrap(err, "failed to derive config address")
	}

	auth, authBump, err := solana.FindProgramAddress([][]byte{AuthoritySeed, cfg.Bytes()}, programID)
	if err != nil {
		return nil, ammerrors.Wrap(err, "failed to derive authority address")
	}

	lp, lpBump, err := solana.FindProgramAddress([][]byte{LPMintSeed, cfg.Bytes()}, programID)
	if err != nil {
		return nil, ammerrors.Wrap(err, "failed to derive lp mint address")
	}

	return &Addresses{
		Config:     cfg,
		ConfigBump: cfgBump,
		Authority:  Authority{Address: auth, Bump: authBump},
		LPMint:     lp,
		LPBump:     lpBump,
	}, nil
}

// AuthorityOf recreates the authority of a stored config from its bump,
// without searching for it again.
func AuthorityOf(programID solana.PublicKey, cfg *Config) (Authority, error) {
	addr, err := solana.CreateProgramAddress(
		[][]byte{AuthoritySeed, cfg.Address.Bytes(), {cfg.AuthBump}},
		programID,
	)
	if err != nil {
		return Authority{}, ammerrors.ErrInvalidConfig.Wrapf("authority bump %d", cfg.AuthBump).WithCause(err)
	}
	return Authority{Address: addr, Bump: cfg.AuthBump}, nil
}

// New builds a validated config for a fresh pool.
func New(programID, mintX, mintY solana.PublicKey, seed uint64, feeBps uint16, authority *solana.PublicKey) (*Config, error) {
	addrs, err := Derive(programID, mintX, mintY, seed)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Address:    addrs.Config,
		Seed:       seed,
		MintX:      mintX,
		MintY:      mintY,
		LPMint:     addrs.LPMint,
		FeeBps:     feeBps,
		ConfigBump: addrs.ConfigBump,
		AuthBump:   addrs.Authority.Bump,
		LPBump:     addrs.LPBump,
	}
	if authority != nil {
		k := *authority
		cfg.Authority = &k
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
