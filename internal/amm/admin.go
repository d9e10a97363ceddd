package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

// Initialize creates the pool identified by (MintX, MintY, Seed), registers
// its LP asset with the pool authority as mint authority and stores the
// config, which is returned alongside the receipt.
func (e *Engine) Initialize(ctx context.Context, req InitializeRequest) (*Receipt, *pool.Config, error) {
	cfg, err := pool.New(e.ProgramID, req.MintX, req.MintY, req.Seed, req.FeeBps, req.Authority)
	if err != nil {
		return nil, nil, err
	}
	auth, err := pool.AuthorityOf(e.ProgramID, cfg)
	if err != nil {
		return nil, nil, err
	}

	r, err := e.execute(ctx, OpInitialize, cfg.Address, req.Payer, func(ctx context.Context, tx storage.Tx) (*Receipt, error) {
		registrar, ok := tx.Ledger().(ledger.AssetRegistrar)
		if !ok {
			return nil, ammerrors.ErrInvalidConfig.Wrapf("ledger cannot create the lp asset")
		}
		for _, mint := range []solana.PublicKey{cfg.MintX, cfg.MintY} {
			if _, err := tx.Ledger().Supply(ctx, mint); err != nil {
				return nil, err
			}
		}

		if err := tx.Pools().Create(ctx, cfg); err != nil {
			return nil, err
		}
		if err := registrar.CreateAsset(ctx, cfg.LPMint, auth.Address); err != nil {
			return nil, err
		}

		return e.newReceipt(OpInitialize, cfg.Address, req.Payer), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}

// Lock pauses deposits, withdrawals and swaps on a pool.
func (e *Engine) Lock(ctx context.Context, address, signer solana.PublicKey) (*Receipt, error) {
	return e.transition(ctx, OpLock, address, signer, func(cfg *pool.Config) error {
		return cfg.SetLocked(signer, true)
	})
}

// Unlock resumes a paused pool.
func (e *Engine) Unlock(ctx context.Context, address, signer solana.PublicKey) (*Receipt, error) {
	return e.transition(ctx, OpUnlock, address, signer, func(cfg *pool.Config) error {
		return cfg.SetLocked(signer, false)
	})
}

// SetAuthority hands the update authority to next, or renounces it for good
// when next is nil.
func (e *Engine) SetAuthority(ctx context.Context, address, signer solana.PublicKey, next *solana.PublicKey) (*Receipt, error) {
	return e.transition(ctx, OpSetAuthority, address, signer, func(cfg *pool.Config) error {
		return cfg.SetAuthority(signer, next)
	})
}

func (e *Engine) transition(ctx context.Context, op Op, address, signer solana.PublicKey, apply func(cfg *pool.Config) error) (*Receipt, error) {
	return e.execute(ctx, op, address, signer, func(ctx context.Context, tx storage.Tx) (*Receipt, error) {
		cfg, err := tx.Pools().Get(ctx, address)
		if err != nil {
			return nil, err
		}
		if err := apply(cfg); err != nil {
			return nil, err
		}
		if err := tx.Pools().Update(ctx, cfg); err != nil {
			return nil, err
		}
		return e.newReceipt(op, address, signer), nil
	})
}
