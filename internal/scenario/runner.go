package scenario

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/amm"
	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

// FundFunc credits owner with amount of asset outside of any pool operation.
type FundFunc func(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int
	Step    Step
	Receipt *amm.Receipt
	// Err is the expected failure of a step with Expect set.
	Err error
}

// PoolState is a pool after the last step.
type PoolState struct {
	Name     string
	Config   *pool.Config
	Reserves curve.Reserves
}

// Result collects what a run did.
type Result struct {
	Steps []StepResult
	Pools []PoolState
}

// Runner executes scenarios through an engine.
type Runner struct {
	common.LoggerMixin

	engine *amm.Engine
	fund   FundFunc
}

// NewRunner creates a runner. fund seeds the declared balances.
func NewRunner(engine *amm.Engine, fund FundFunc) *Runner {
	return &Runner{
		LoggerMixin: common.NewLoggerMixin(),
		engine:      engine,
		fund:        fund,
	}
}

// Run funds the balances, creates the pools and executes every step in order.
// It stops at the first step whose outcome differs from its Expect field and
// returns the results gathered so far alongside the error.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	logger := r.GetLogger().With(zap.String("scenario", s.Name))
	result := &Result{}

	for _, b := range s.Balances {
		if err := r.fund(ctx, Key(b.Mint), Key(b.Owner), b.Amount); err != nil {
			return result, fmt.Errorf("failed to fund %s with %d %s: %w", b.Owner, b.Amount, b.Mint, err)
		}
	}

	addresses := make(map[string]solana.PublicKey, len(s.Pools))
	for _, p := range s.Pools {
		req := amm.InitializeRequest{
			Payer:  Key(p.Authority),
			MintX:  Key(p.MintX),
			MintY:  Key(p.MintY),
			Seed:   p.Seed,
			FeeBps: p.FeeBps,
		}
		if p.Authority != "" {
			auth := Key(p.Authority)
			req.Authority = &auth
		}
		_, cfg, err := r.engine.Initialize(ctx, req)
		if err != nil {
			return result, fmt.Errorf("failed to initialize pool %s: %w", p.Name, err)
		}
		addresses[p.Name] = cfg.Address
		logger.Debug("pool initialized", zap.String("name", p.Name), zap.Stringer("address", cfg.Address))
	}

	for i, st := range s.Steps {
		receipt, err := r.step(ctx, addresses[st.Pool], st)
		switch {
		case err != nil && st.Expect != "" && ammerrors.Code(err) == st.Expect:
			result.Steps = append(result.Steps, StepResult{Index: i, Step: st, Err: err})
		case err != nil:
			return result, fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		case st.Expect != "":
			return result, fmt.Errorf("step %d (%s): succeeded, expected %s", i, st.Op, st.Expect)
		default:
			result.Steps = append(result.Steps, StepResult{Index: i, Step: st, Receipt: receipt})
		}
	}

	for _, p := range s.Pools {
		addr := addresses[p.Name]
		cfg, err := r.engine.Pool(ctx, addr)
		if err != nil {
			return result, err
		}
		reserves, err := r.engine.Reserves(ctx, addr)
		if err != nil {
			return result, err
		}
		result.Pools = append(result.Pools, PoolState{Name: p.Name, Config: cfg, Reserves: reserves})
	}
	return result, nil
}

func (r *Runner) step(ctx context.Context, address solana.PublicKey, st Step) (*amm.Receipt, error) {
	user := Key(st.User)
	expiresIn := int64(DefaultExpiresIn)
	if st.ExpiresIn != nil {
		expiresIn = *st.ExpiresIn
	}
	expiration := r.engine.Now().Unix() + expiresIn

	switch st.Op {
	case amm.OpDeposit:
		return r.engine.Deposit(ctx, amm.DepositRequest{
			Pool: address, User: user, Shares: st.Shares, MaxX: st.MaxX, MaxY: st.MaxY, Expiration: expiration,
		})
	case amm.OpWithdraw:
		return r.engine.Withdraw(ctx, amm.WithdrawRequest{
			Pool: address, User: user, Shares: st.Shares, MinX: st.MinX, MinY: st.MinY, Expiration: expiration,
		})
	case amm.OpSwap:
		return r.engine.Swap(ctx, amm.SwapRequest{
			Pool: address, User: user, IsX: st.IsX, Amount: st.Amount, MinOut: st.MinOut, Expiration: expiration,
		})
	case amm.OpLock:
		return r.engine.Lock(ctx, address, user)
	case amm.OpUnlock:
		return r.engine.Unlock(ctx, address, user)
	case amm.OpSetAuthority:
		var next *solana.PublicKey
		if st.Authority != "" {
			k := Key(st.Authority)
			next = &k
		}
		return r.engine.SetAuthority(ctx, address, user, next)
	default:
		return nil, fmt.Errorf("unknown op %q", st.Op)
	}
}
