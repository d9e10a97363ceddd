package solana

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/amm"
	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/curve"
	"github.com/lugondev/go-amm/internal/decoder/spl_token"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

var planNow = time.Unix(1_700_000_000, 0)

type planFixture struct {
	rpc     *fakeRPC
	planner *Planner
	engine  *amm.Engine
	cfg     *pool.Config
	vault   solana.PublicKey
	user    solana.PublicKey
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()

	f := newFakeRPC()
	cfg := newTestPool(t, f)
	auth, err := pool.AuthorityOf(testProgram, cfg)
	require.NoError(t, err)
	user := solana.NewWallet().PublicKey()

	f.setBalance(auth.Address, cfg.MintX, 1000)
	f.setBalance(auth.Address, cfg.MintY, 1000)
	f.supplies[cfg.MintX] = 1_000_000
	f.supplies[cfg.MintY] = 1_000_000
	f.supplies[cfg.LPMint] = 1000
	f.setBalance(user, cfg.MintX, 500)
	f.setBalance(user, cfg.MintY, 500)
	f.setBalance(user, cfg.LPMint, 500)

	planner := NewPlanner(NewClientWithRPC(f, config.SolanaConfig{}), testProgram)
	engine, err := amm.NewEngineBuilder().
		Store(planner).
		ProgramID(testProgram).
		Clock(func() time.Time { return planNow }).
		Build()
	require.NoError(t, err)

	return &planFixture{rpc: f, planner: planner, engine: engine, cfg: cfg, vault: auth.Address, user: user}
}

func (f *planFixture) events(t *testing.T) []*spl_token.Event {
	t.Helper()
	events, err := spl_token.DecodeAll(f.planner.Instructions())
	require.NoError(t, err)
	return events
}

func TestPlannerSwap(t *testing.T) {
	f := newPlanFixture(t)

	r, err := f.engine.Swap(context.Background(), amm.SwapRequest{
		Pool:       f.cfg.Address,
		User:       f.user,
		IsX:        true,
		Amount:     100,
		MinOut:     1,
		Expiration: planNow.Unix(),
	})
	require.NoError(t, err)

	// 100 less a 30 bps fee is 99; 99*1000/1099 = 90.08..
	assert.Equal(t, uint64(90), r.AmountOut)
	assert.Equal(t, curve.Reserves{X: 1100, Y: 910, Supply: 1000}, *r.Reserves)

	events := f.events(t)
	require.Len(t, events, 2)

	assert.Equal(t, spl_token.KindTransfer, events[0].Kind)
	assert.Equal(t, f.cfg.MintX, events[0].Mint)
	assert.Equal(t, f.user, events[0].Authority)
	assert.Equal(t, uint64(100), events[0].Amount)
	assert.Equal(t, uint8(6), events[0].Decimals)

	assert.Equal(t, f.cfg.MintY, events[1].Mint)
	assert.Equal(t, f.vault, events[1].Authority)
	assert.Equal(t, uint64(90), events[1].Amount)
}

func TestPlannerDepositAndWithdraw(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()

	_, err := f.engine.Deposit(ctx, amm.DepositRequest{
		Pool:       f.cfg.Address,
		User:       f.user,
		Shares:     100,
		MaxX:       100,
		MaxY:       100,
		Expiration: planNow.Unix(),
	})
	require.NoError(t, err)

	events := f.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, spl_token.KindMintTo, events[2].Kind)
	assert.Equal(t, f.cfg.LPMint, events[2].Mint)
	assert.Equal(t, f.vault, events[2].Authority)
	assert.Equal(t, uint64(100), events[2].Amount)

	r, err := f.engine.Withdraw(ctx, amm.WithdrawRequest{
		Pool:       f.cfg.Address,
		User:       f.user,
		Shares:     500,
		MinX:       1,
		MinY:       1,
		Expiration: planNow.Unix(),
	})
	require.NoError(t, err)
	assert.Equal(t, curve.Reserves{X: 500, Y: 500, Supply: 500}, *r.Reserves)

	events = f.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, spl_token.KindBurn, events[2].Kind)
	assert.Equal(t, f.user, events[2].Authority)
	assert.Equal(t, uint64(500), events[2].Amount)
}

func TestPlannerKeepsLastSuccessfulPlan(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()

	_, err := f.engine.Swap(ctx, amm.SwapRequest{
		Pool: f.cfg.Address, User: f.user, IsX: false, Amount: 10, MinOut: 1, Expiration: planNow.Unix(),
	})
	require.NoError(t, err)
	require.Len(t, f.planner.Instructions(), 2)

	// The user only holds 500 Y.
	_, err = f.engine.Swap(ctx, amm.SwapRequest{
		Pool: f.cfg.Address, User: f.user, IsX: false, Amount: 501, MinOut: 1, Expiration: planNow.Unix(),
	})
	require.ErrorIs(t, err, ammerrors.ErrInsufficientBalance)
	assert.Len(t, f.planner.Instructions(), 2)
}

func TestPlannerRunsOnePlanAtATime(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()

	entered, release := make(chan struct{}), make(chan struct{})
	secondRan := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		assert.NoError(t, f.planner.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
			close(entered)
			<-release
			return nil
		}))
	}()
	<-entered

	go func() {
		defer wg.Done()
		assert.NoError(t, f.planner.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
			close(secondRan)
			return tx.Ledger().Move(ctx, f.cfg.MintX, f.user, f.vault, 1, f.user)
		}))
	}()

	select {
	case <-secondRan:
		t.Fatal("second plan started while the first was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	assert.Len(t, f.planner.Instructions(), 1)
}

func TestPlannerCachesReads(t *testing.T) {
	f := newPlanFixture(t)

	err := f.planner.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		for i := 0; i < 3; i++ {
			v, err := tx.Ledger().Balance(ctx, f.cfg.MintX, f.vault)
			require.NoError(t, err)
			require.Equal(t, uint64(1000), v)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.rpc.balanceCalls)
}

func TestPlannerRejectsForeignSigner(t *testing.T) {
	f := newPlanFixture(t)

	err := f.planner.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.Ledger().Move(ctx, f.cfg.MintX, f.vault, f.user, 1, f.user)
	})
	require.ErrorIs(t, err, ammerrors.ErrUnauthorized)
}

func TestPlannerPoolsAreReadOnly(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()

	_, err := f.engine.Lock(ctx, f.cfg.Address, *f.cfg.Authority)
	require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)

	_, err = f.engine.Pools(ctx)
	require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)

	_, _, err = f.engine.Initialize(ctx, amm.InitializeRequest{
		Payer: f.user, MintX: f.cfg.MintX, MintY: f.cfg.MintY, Seed: 8,
	})
	require.ErrorIs(t, err, ammerrors.ErrInvalidConfig)
}

func TestPlannerPing(t *testing.T) {
	f := newPlanFixture(t)
	require.NoError(t, f.planner.Ping(context.Background()))
	require.NoError(t, f.planner.Close())
}
