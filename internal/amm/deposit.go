package amm

import (
	"context"

	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/storage"
)

// Deposit mints req.Shares LP shares to req.User in exchange for X and Y,
// never taking more than req.MaxX and req.MaxY.
//
// On an empty pool the maxima are taken as-is and set the initial price.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*Receipt, error) {
	return e.execute(ctx, OpDeposit, req.Pool, req.User, func(ctx context.Context, tx storage.Tx) (*Receipt, error) {
		s, err := e.open(ctx, tx, req.Pool)
		if err != nil {
			return nil, err
		}
		need, err := e.priceDeposit(ctx, s, req)
		if err != nil {
			return nil, err
		}

		vault := s.authority.Address
		if err := s.ledger.Move(ctx, s.cfg.MintX, req.User, vault, need.X, req.User); err != nil {
			return nil, err
		}
		if err := s.ledger.Move(ctx, s.cfg.MintY, req.User, vault, need.Y, req.User); err != nil {
			return nil, err
		}
		if err := s.ledger.Mint(ctx, s.cfg.LPMint, req.User, req.Shares, vault); err != nil {
			return nil, err
		}

		after, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}

		r := e.newReceipt(OpDeposit, req.Pool, req.User)
		r.AmountX, r.AmountY, r.Shares = need.X, need.Y, req.Shares
		r.Reserves = &after
		return r, nil
	})
}

func (e *Engine) priceDeposit(ctx context.Context, s *session, req DepositRequest) (curve.Amounts, error) {
	if err := e.guard(s.cfg, req.Expiration, req.Shares, req.MaxX, req.MaxY); err != nil {
		return curve.Amounts{}, err
	}
	before, err := s.snapshot(ctx)
	if err != nil {
		return curve.Amounts{}, err
	}
	need, err := curve.DepositAmounts(before, req.Shares, curve.Amounts{X: req.MaxX, Y: req.MaxY})
	if err != nil {
		return curve.Amounts{}, err
	}
	if need.X > req.MaxX || need.Y > req.MaxY {
		return curve.Amounts{}, ammerrors.ErrSlippageExceeded.Wrapf("deposit needs x=%d y=%d, max x=%d y=%d",
			need.X, need.Y, req.MaxX, req.MaxY).
			WithDetails(map[string]any{"need_x": need.X, "need_y": need.Y, "max_x": req.MaxX, "max_y": req.MaxY})
	}
	return need, nil
}
