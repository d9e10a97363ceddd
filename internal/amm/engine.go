// Package amm orchestrates the pool operations of a constant-product market
// maker.
//
// Every operation follows the same shape. It loads the pool config, checks the
// request guards, reads a fresh reserve snapshot from the ledger, asks the
// curve for amounts, checks the caller's bounds and only then issues ledger
// calls. All of it runs inside one storage.Store Atomic call, so a failure at
// any step leaves the ledger untouched.
//
// # Key Components
//
//   - Engine: runs Initialize, Deposit, Withdraw, Swap and the privileged
//     Lock, Unlock and SetAuthority transitions.
//   - EngineBuilder: fluent construction with store, program id, clock,
//     logger and metrics.
//   - Receipt: the record returned for every successful operation.
package amm

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

// Engine executes pool operations against a store.
type Engine struct {
	common.LoggerMixin

	// Store provides the atomic ledger and pool repository.
	Store storage.Store

	// ProgramID is the owner of every derived pool address.
	ProgramID solana.PublicKey

	// Metrics receives operation outcomes, latencies and reserve gauges.
	Metrics *metrics.Collection

	// Now is the clock used for expiration checks.
	Now func() time.Time
}

// NewEngine creates an engine with a no-op logger, empty metrics and the
// wall clock.
func NewEngine(store storage.Store, programID solana.PublicKey) *Engine {
	return &Engine{
		LoggerMixin: common.NewLoggerMixin(),
		Store:       store,
		ProgramID:   programID,
		Metrics:     metrics.NewCollection(),
		Now:         time.Now,
	}
}

// execute runs fn atomically and reports its outcome. The receipt fn returns
// is stamped with the operation id used in the log lines.
func (e *Engine) execute(ctx context.Context, op Op, poolAddr, user solana.PublicKey, fn func(ctx context.Context, tx storage.Tx) (*Receipt, error)) (*Receipt, error) {
	start := time.Now()
	id := uuid.New()
	logger := e.GetLogger().With(
		zap.Stringer("op", op),
		zap.Stringer("op_id", id),
		zap.Stringer("pool", poolAddr),
		zap.Stringer("user", user),
	)

	var receipt *Receipt
	err := e.Store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		r, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})

	e.record(ctx, op.String()+metrics.SuffixLatency, time.Since(start).Seconds(), true)
	if err != nil {
		e.count(ctx, op.String()+metrics.SuffixRejected)
		fields := []zap.Field{zap.String("code", ammerrors.Code(err)), zap.Error(err)}
		var ammErr *ammerrors.Error
		if ammerrors.As(err, &ammErr) && len(ammErr.Details) > 0 {
			fields = append(fields, zap.Any("details", ammErr.Details))
		}
		logger.Warn("operation rejected", fields...)
		return nil, err
	}

	receipt.ID = id
	e.count(ctx, op.String()+metrics.SuffixSucceeded)
	if receipt.Reserves != nil {
		e.gauges(ctx, *receipt.Reserves)
	}
	logger.Debug("operation executed", zap.Object("receipt", receipt))
	return receipt, nil
}

func (e *Engine) count(ctx context.Context, name string) {
	if err := e.Metrics.IncrementCounter(ctx, name, 1); err != nil {
		e.GetLogger().Warn("failed to increment counter", zap.String("name", name), zap.Error(err))
	}
}

func (e *Engine) record(ctx context.Context, name string, value float64, histogram bool) {
	var err error
	if histogram {
		err = e.Metrics.RecordHistogram(ctx, name, value)
	} else {
		err = e.Metrics.UpdateGauge(ctx, name, value)
	}
	if err != nil {
		e.GetLogger().Warn("failed to record metric", zap.String("name", name), zap.Error(err))
	}
}

func (e *Engine) gauges(ctx context.Context, r curve.Reserves) {
	e.record(ctx, metrics.MetricPoolReserveX, float64(r.X), false)
	e.record(ctx, metrics.MetricPoolReserveY, float64(r.Y), false)
	e.record(ctx, metrics.MetricPoolLPSupply, float64(r.Supply), false)
}

// guard checks the conditions shared by deposit, withdraw and swap, in order:
// lock state, expiration, then non-zero amounts.
func (e *Engine) guard(cfg *pool.Config, expiration int64, amounts ...uint64) error {
	if err := cfg.RequireUnlocked(); err != nil {
		return err
	}
	if now := e.Now().Unix(); now > expiration {
		return ammerrors.ErrExpired.Wrapf("now %d is past expiration %d", now, expiration)
	}
	for _, a := range amounts {
		if a == 0 {
			return ammerrors.ErrZeroAmount.Wrapf("zero amount in request")
		}
	}
	return nil
}

// session is the per-operation view of one pool.
type session struct {
	ledger    ledger.Ledger
	cfg       *pool.Config
	authority pool.Authority
}

func (e *Engine) open(ctx context.Context, tx storage.Tx, address solana.PublicKey) (*session, error) {
	cfg, err := tx.Pools().Get(ctx, address)
	if err != nil {
		return nil, err
	}
	auth, err := pool.AuthorityOf(e.ProgramID, cfg)
	if err != nil {
		return nil, err
	}
	return &session{ledger: tx.Ledger(), cfg: cfg, authority: auth}, nil
}

// snapshot reads the vault balances and LP supply. It is never cached.
func (s *session) snapshot(ctx context.Context) (curve.Reserves, error) {
	x, err := s.ledger.Balance(ctx, s.cfg.MintX, s.authority.Address)
	if err != nil {
		return curve.Reserves{}, err
	}
	y, err := s.ledger.Balance(ctx, s.cfg.MintY, s.authority.Address)
	if err != nil {
		return curve.Reserves{}, err
	}
	supply, err := s.ledger.Supply(ctx, s.cfg.LPMint)
	if err != nil {
		return curve.Reserves{}, err
	}
	return curve.Reserves{X: x, Y: y, Supply: supply}, nil
}

// Reserves returns the current snapshot of a pool.
func (e *Engine) Reserves(ctx context.Context, address solana.PublicKey) (curve.Reserves, error) {
	var r curve.Reserves
	err := e.Store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		s, err := e.open(ctx, tx, address)
		if err != nil {
			return err
		}
		r, err = s.snapshot(ctx)
		return err
	})
	return r, err
}

// Pool returns the stored config of a pool.
func (e *Engine) Pool(ctx context.Context, address solana.PublicKey) (*pool.Config, error) {
	var cfg *pool.Config
	err := e.Store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		cfg, err = tx.Pools().Get(ctx, address)
		return err
	})
	return cfg, err
}

// Pools lists every stored pool.
func (e *Engine) Pools(ctx context.Context) ([]*pool.Config, error) {
	var out []*pool.Config
	err := e.Store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.Pools().List(ctx)
		return err
	})
	return out, err
}
