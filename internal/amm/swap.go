package amm

import (
	"context"

	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/storage"
)

// Swap sells req.Amount of one asset to the pool for at least req.MinOut of
// the other. The product of the reserves is checked not to decrease.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (*Receipt, error) {
	r, err := e.execute(ctx, OpSwap, req.Pool, req.User, func(ctx context.Context, tx storage.Tx) (*Receipt, error) {
		s, err := e.open(ctx, tx, req.Pool)
		if err != nil {
			return nil, err
		}
		before, out, err := e.priceSwap(ctx, s, req)
		if err != nil {
			return nil, err
		}

		vault := s.authority.Address
		mintIn, mintOut := s.cfg.Mint(req.IsX), s.cfg.Mint(!req.IsX)
		if err := s.ledger.Move(ctx, mintIn, req.User, vault, req.Amount, req.User); err != nil {
			return nil, err
		}
		if err := s.ledger.Move(ctx, mintOut, vault, req.User, out, vault); err != nil {
			return nil, err
		}

		after, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if curve.Invariant(after).LT(curve.Invariant(before)) {
			return nil, ammerrors.ErrInvariantViolation.Wrapf("product fell from %s to %s",
				curve.Invariant(before), curve.Invariant(after))
		}

		r := e.newReceipt(OpSwap, req.Pool, req.User)
		r.InputMint, r.OutputMint = mintIn, mintOut
		r.AmountIn, r.AmountOut = req.Amount, out
		r.Reserves = &after
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	e.volume(ctx, r)
	return r, nil
}

// priceSwap checks the guards and the caller's bound against a fresh
// snapshot and returns it with the amount the pool pays.
func (e *Engine) priceSwap(ctx context.Context, s *session, req SwapRequest) (curve.Reserves, uint64, error) {
	if err := e.guard(s.cfg, req.Expiration, req.Amount, req.MinOut); err != nil {
		return curve.Reserves{}, 0, err
	}
	before, err := s.snapshot(ctx)
	if err != nil {
		return curve.Reserves{}, 0, err
	}
	reserveIn, reserveOut := before.X, before.Y
	if !req.IsX {
		reserveIn, reserveOut = before.Y, before.X
	}

	out, err := curve.SwapOutput(reserveIn, reserveOut, req.Amount, s.cfg.FeeBps)
	if err != nil {
		return curve.Reserves{}, 0, err
	}
	if out < req.MinOut {
		return curve.Reserves{}, 0, ammerrors.ErrSlippageExceeded.Wrapf("swap pays %d, min %d", out, req.MinOut).
			WithDetails(map[string]any{"out": out, "min_out": req.MinOut})
	}
	return before, out, nil
}

func (e *Engine) volume(ctx context.Context, r *Receipt) {
	if err := e.Metrics.IncrementCounter(ctx, metrics.MetricSwapVolumeIn, r.AmountIn); err != nil {
		e.GetLogger().Warn("failed to record swap volume", zap.Error(err))
	}
	if err := e.Metrics.IncrementCounter(ctx, metrics.MetricSwapVolumeOut, r.AmountOut); err != nil {
		e.GetLogger().Warn("failed to record swap volume", zap.Error(err))
	}
}
