package solana

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

// Planner is a read-only storage.Store over a cluster. Ledger writes become
// SPL Token instructions instead of balance changes; reads made later in the
// same Atomic call see the effect of the planned writes.
type Planner struct {
	client    *Client
	programID solana.PublicKey

	mu   sync.Mutex
	last []solana.Instruction
}

// NewPlanner creates a planner reading through client.
func NewPlanner(client *Client, programID solana.PublicKey) *Planner {
	return &Planner{client: client, programID: programID}
}

// Atomic implements storage.Store. Calls run one at a time, and the
// instructions of the last successful one are available from Instructions.
// fn must not call back into the planner.
func (p *Planner) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := &planTx{
		ledger: newPlanLedger(p.client),
		pools:  &chainPools{client: p.client, programID: p.programID},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	p.last = tx.ledger.instructions
	return nil
}

// Instructions returns the token instructions planned by the last successful
// Atomic call.
func (p *Planner) Instructions() []solana.Instruction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]solana.Instruction(nil), p.last...)
}

func (p *Planner) Close() error { return nil }

// Ping checks the cluster is reachable.
func (p *Planner) Ping(ctx context.Context) error {
	_, err := p.client.GetLatestBlockhash(ctx)
	return err
}

type planTx struct {
	ledger *planLedger
	pools  *chainPools
}

func (t *planTx) Ledger() ledger.Ledger   { return t.ledger }
func (t *planTx) Pools() pool.Repository { return t.pools }

// planLedger caches every balance and supply it reads and applies planned
// writes to the cached values.
type planLedger struct {
	client       *Client
	balances     map[ledger.AccountKey]uint64
	supplies     map[solana.PublicKey]uint64
	decimals     map[solana.PublicKey]uint8
	instructions []solana.Instruction
}

func newPlanLedger(client *Client) *planLedger {
	return &planLedger{
		client:   client,
		balances: make(map[ledger.AccountKey]uint64),
		supplies: make(map[solana.PublicKey]uint64),
		decimals: make(map[solana.PublicKey]uint8),
	}
}

func tokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, ammerrors.ErrInvalidAsset.Wrapf("token account of %s for %s", owner, mint).WithCause(err)
	}
	return ata, nil
}

func (l *planLedger) Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error) {
	key := ledger.AccountKey{Asset: asset, Owner: owner}
	if v, ok := l.balances[key]; ok {
		return v, nil
	}
	ata, err := tokenAccount(owner, asset)
	if err != nil {
		return 0, err
	}
	amount, decimals, err := l.client.TokenBalance(ctx, ata)
	if err != nil {
		return 0, err
	}
	l.balances[key] = amount
	l.decimals[asset] = decimals
	return amount, nil
}

func (l *planLedger) Supply(ctx context.Context, asset solana.PublicKey) (uint64, error) {
	if v, ok := l.supplies[asset]; ok {
		return v, nil
	}
	supply, decimals, err := l.client.TokenSupply(ctx, asset)
	if err != nil {
		return 0, ammerrors.ErrInvalidAsset.Wrapf("%s", asset).WithCause(err)
	}
	l.supplies[asset] = supply
	l.decimals[asset] = decimals
	return supply, nil
}

func (l *planLedger) decimalsOf(ctx context.Context, asset solana.PublicKey) (uint8, error) {
	if d, ok := l.decimals[asset]; ok {
		return d, nil
	}
	if _, err := l.Supply(ctx, asset); err != nil {
		return 0, err
	}
	return l.decimals[asset], nil
}

// debit reads the source balance so an overdraft fails at plan time. credit
// only adjusts balances already read, since the destination token account may
// not exist yet.
func (l *planLedger) debit(ctx context.Context, key ledger.AccountKey, amount uint64) error {
	held, err := l.Balance(ctx, key.Asset, key.Owner)
	if err != nil {
		return err
	}
	if held < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, needs %d", key.Owner, held, key.Asset, amount)
	}
	l.balances[key] = held - amount
	return nil
}

func (l *planLedger) credit(key ledger.AccountKey, amount uint64) error {
	held, ok := l.balances[key]
	if !ok {
		return nil
	}
	if held+amount < held {
		return ammerrors.ErrArithmeticOverflow.Wrapf("balance of %s in %s", key.Owner, key.Asset)
	}
	l.balances[key] = held + amount
	return nil
}

func (l *planLedger) Move(ctx context.Context, asset, from, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot move funds of %s", signer, from)
	}
	decimals, err := l.decimalsOf(ctx, asset)
	if err != nil {
		return err
	}
	src, err := tokenAccount(from, asset)
	if err != nil {
		return err
	}
	dst, err := tokenAccount(to, asset)
	if err != nil {
		return err
	}

	if err := l.debit(ctx, ledger.AccountKey{Asset: asset, Owner: from}, amount); err != nil {
		return err
	}
	if err := l.credit(ledger.AccountKey{Asset: asset, Owner: to}, amount); err != nil {
		return err
	}

	l.instructions = append(l.instructions,
		token.NewTransferCheckedInstruction(amount, decimals, src, asset, dst, from, nil).Build())
	return nil
}

func (l *planLedger) Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	supply, err := l.Supply(ctx, asset)
	if err != nil {
		return err
	}
	if supply+amount < supply {
		return ammerrors.ErrArithmeticOverflow.Wrapf("supply of %s", asset)
	}
	dst, err := tokenAccount(to, asset)
	if err != nil {
		return err
	}
	if err := l.credit(ledger.AccountKey{Asset: asset, Owner: to}, amount); err != nil {
		return err
	}
	l.supplies[asset] = supply + amount

	l.instructions = append(l.instructions,
		token.NewMintToInstruction(amount, asset, dst, signer, nil).Build())
	return nil
}

func (l *planLedger) Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot burn funds of %s", signer, from)
	}
	supply, err := l.Supply(ctx, asset)
	if err != nil {
		return err
	}
	if supply < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("burn %d exceeds supply %d of %s", amount, supply, asset)
	}
	src, err := tokenAccount(from, asset)
	if err != nil {
		return err
	}
	if err := l.debit(ctx, ledger.AccountKey{Asset: asset, Owner: from}, amount); err != nil {
		return err
	}
	l.supplies[asset] = supply - amount

	l.instructions = append(l.instructions,
		token.NewBurnInstruction(amount, src, asset, from, nil).Build())
	return nil
}

// chainPools reads pool configs from their on-chain accounts. Pools are
// created and changed by the program itself, never through the planner.
type chainPools struct {
	client    *Client
	programID solana.PublicKey
}

func (r *chainPools) Get(ctx context.Context, address solana.PublicKey) (*pool.Config, error) {
	return r.client.PoolConfig(ctx, r.programID, address)
}

func (r *chainPools) Create(ctx context.Context, cfg *pool.Config) error {
	return ammerrors.ErrInvalidConfig.Wrapf("pool %s must be created on chain", cfg.Address)
}

func (r *chainPools) Update(ctx context.Context, cfg *pool.Config) error {
	return ammerrors.ErrInvalidConfig.Wrapf("pool %s must be updated on chain", cfg.Address)
}

func (r *chainPools) List(ctx context.Context) ([]*pool.Config, error) {
	return nil, ammerrors.ErrInvalidConfig.Wrapf("listing pools is not supported over rpc")
}

var (
	_ storage.Store   = (*Planner)(nil)
	_ ledger.Ledger   = (*planLedger)(nil)
	_ pool.Repository = (*chainPools)(nil)
)
