package postgres

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

const poolColumns = `address, seed::text, mint_x, mint_y, lp_mint, fee_bps, locked, authority, config_bump, auth_bump, lp_bump`

// pgPools is a pool.Repository bound to one open transaction.
type pgPools struct {
	tx pgx.Tx
}

func scanPool(row pgx.Row) (*pool.Config, error) {
	var (
		address, seed, mintX, mintY, lpMint string
		feeBps                              int32
		locked                              bool
		authority                           *string
		configBump, authBump, lpBump        int16
	)
	if err := row.Scan(&address, &seed, &mintX, &mintY, &lpMint, &feeBps, &locked,
		&authority, &configBump, &authBump, &lpBump); err != nil {
		return nil, err
	}

	cfg := &pool.Config{
		FeeBps:     uint16(feeBps),
		Locked:     locked,
		ConfigBump: uint8(configBump),
		AuthBump:   uint8(authBump),
		LPBump:     uint8(lpBump),
	}
	var err error
	if cfg.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if cfg.Seed, err = parseAmount(seed); err != nil {
		return nil, err
	}
	if cfg.MintX, err = parseKey(mintX); err != nil {
		return nil, err
	}
	if cfg.MintY, err = parseKey(mintY); err != nil {
		return nil, err
	}
	if cfg.LPMint, err = parseKey(lpMint); err != nil {
		return nil, err
	}
	if authority != nil {
		key, err := parseKey(*authority)
		if err != nil {
			return nil, err
		}
		cfg.Authority = &key
	}
	return cfg, nil
}

func authorityArg(cfg *pool.Config) *string {
	if cfg.Authority == nil {
		return nil
	}
	s := cfg.Authority.String()
	return &s
}

func (r *pgPools) Get(ctx context.Context, address solana.PublicKey) (*pool.Config, error) {
	cfg, err := QueryOne(r.tx, ctx,
		`SELECT `+poolColumns+` FROM amm_pools WHERE address = $1 FOR UPDATE`,
		scanPool, address.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s", address)
	}
	return cfg, err
}

func (r *pgPools) Create(ctx context.Context, cfg *pool.Config) error {
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO amm_pools (address, seed, mint_x, mint_y, lp_mint, fee_bps, locked, authority, config_bump, auth_bump, lp_bump)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO NOTHING`,
		cfg.Address.String(), formatAmount(cfg.Seed), cfg.MintX.String(), cfg.MintY.String(),
		cfg.LPMint.String(), int32(cfg.FeeBps), cfg.Locked, authorityArg(cfg),
		int16(cfg.ConfigBump), int16(cfg.AuthBump), int16(cfg.LPBump),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ammerrors.ErrPoolExists.Wrapf("%s", cfg.Address)
	}
	return nil
}

func (r *pgPools) Update(ctx context.Context, cfg *pool.Config) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE amm_pools SET fee_bps = $2, locked = $3, authority = $4, updated_at = NOW()
		WHERE address = $1`,
		cfg.Address.String(), int32(cfg.FeeBps), cfg.Locked, authorityArg(cfg),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ammerrors.ErrPoolNotFound.Wrapf("%s", cfg.Address)
	}
	return nil
}

func (r *pgPools) List(ctx context.Context) ([]*pool.Config, error) {
	return QueryMany(r.tx, ctx,
		`SELECT `+poolColumns+` FROM amm_pools ORDER BY address`,
		scanPool)
}

var _ pool.Repository = (*pgPools)(nil)
