package amm

import (
	"context"

	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/storage"
)

// Withdraw burns req.Shares of req.User and pays out the proportional share of
// both reserves, failing unless it is at least req.MinX and req.MinY.
//
// The payout happens before the burn.
func (e *Engine) Withdraw(ctx context.Context, req WithdrawRequest) (*Receipt, error) {
	return e.execute(ctx, OpWithdraw, req.Pool, req.User, func(ctx context.Context, tx storage.Tx) (*Receipt, error) {
		s, err := e.open(ctx, tx, req.Pool)
		if err != nil {
			return nil, err
		}
		out, err := e.priceWithdraw(ctx, s, req)
		if err != nil {
			return nil, err
		}

		vault := s.authority.Address
		if err := s.ledger.Move(ctx, s.cfg.MintX, vault, req.User, out.X, vault); err != nil {
			return nil, err
		}
		if err := s.ledger.Move(ctx, s.cfg.MintY, vault, req.User, out.Y, vault); err != nil {
			return nil, err
		}
		if err := s.ledger.Burn(ctx, s.cfg.LPMint, req.User, req.Shares, req.User); err != nil {
			return nil, err
		}

		after, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}

		r := e.newReceipt(OpWithdraw, req.Pool, req.User)
		r.AmountX, r.AmountY, r.Shares = out.X, out.Y, req.Shares
		r.Reserves = &after
		return r, nil
	})
}

func (e *Engine) priceWithdraw(ctx context.Context, s *session, req WithdrawRequest) (curve.Amounts, error) {
	if err := e.guard(s.cfg, req.Expiration, req.Shares, req.MinX, req.MinY); err != nil {
		return curve.Amounts{}, err
	}
	before, err := s.snapshot(ctx)
	if err != nil {
		return curve.Amounts{}, err
	}
	out, err := curve.WithdrawAmounts(before, req.Shares)
	if err != nil {
		return curve.Amounts{}, err
	}
	if out.X < req.MinX || out.Y < req.MinY {
		return curve.Amounts{}, ammerrors.ErrSlippageExceeded.Wrapf("withdraw pays x=%d y=%d, min x=%d y=%d",
			out.X, out.Y, req.MinX, req.MinY).
			WithDetails(map[string]any{"out_x": out.X, "out_y": out.Y, "min_x": req.MinX, "min_y": req.MinY})
	}
	return out, nil
}
