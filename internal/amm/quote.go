package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/curve"
	"github.com/lugondev/go-amm/internal/storage"
)

// Quotes are dry runs. They apply the guards, the curve and the caller's
// bounds exactly as the mutating operation would, and issue no ledger calls.
// A quote therefore fails with the same code the operation would fail with.

// QuoteSwap returns what Swap would pay right now.
func (e *Engine) QuoteSwap(ctx context.Context, req SwapRequest) (uint64, error) {
	var out uint64
	err := e.quote(ctx, req.Pool, func(ctx context.Context, s *session) error {
		var err error
		_, out, err = e.priceSwap(ctx, s, req)
		return err
	})
	return out, err
}

// QuoteDeposit returns the amounts Deposit would take for shares.
func (e *Engine) QuoteDeposit(ctx context.Context, req DepositRequest) (curve.Amounts, error) {
	var need curve.Amounts
	err := e.quote(ctx, req.Pool, func(ctx context.Context, s *session) error {
		var err error
		need, err = e.priceDeposit(ctx, s, req)
		return err
	})
	return need, err
}

// QuoteWithdraw returns the amounts Withdraw would pay for shares.
func (e *Engine) QuoteWithdraw(ctx context.Context, req WithdrawRequest) (curve.Amounts, error) {
	var out curve.Amounts
	err := e.quote(ctx, req.Pool, func(ctx context.Context, s *session) error {
		var err error
		out, err = e.priceWithdraw(ctx, s, req)
		return err
	})
	return out, err
}

func (e *Engine) quote(ctx context.Context, address solana.PublicKey, fn func(ctx context.Context, s *session) error) error {
	return e.Store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		s, err := e.open(ctx, tx, address)
		if err != nil {
			return err
		}
		return fn(ctx, s)
	})
}
