// Package memory provides an in-process storage.Store.
//
// Atomic calls are serialized by a mutex. Each call works on a copy of the
// ledger and the pool table, and the copy replaces the live state only when
// the call succeeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

func init() {
	storage.RegisterMemoryFactory(func(ctx context.Context) (storage.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory storage.Store.
type Store struct {
	mu     sync.Mutex
	ledger *ledger.Memory
	pools  map[solana.PublicKey]*pool.Config
}

// New creates an empty store.
func New() *Store {
	return &Store{
		ledger: ledger.NewMemory(),
		pools:  make(map[solana.PublicKey]*pool.Config),
	}
}

// Atomic implements storage.Store.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		ledger: s.ledger.Clone(),
		pools:  &poolTable{pools: clonePools(s.pools)},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.ledger = tx.ledger
	s.pools = tx.pools.pools
	return nil
}

// Fund credits owner with amount of an external asset outside any operation.
func (s *Store) Fund(asset, owner solana.PublicKey, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Fund(asset, owner, amount)
}

// Accounts returns every non-zero balance.
func (s *Store) Accounts() map[ledger.AccountKey]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Accounts()
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

type memTx struct {
	ledger *ledger.Memory
	pools  *poolTable
}

func (t *memTx) Ledger() ledger.Ledger   { return t.ledger }
func (t *memTx) Pools() pool.Repository { return t.pools }

type poolTable struct {
	pools map[solana.PublicKey]*pool.Config
}

func (p *poolTable) Get(_ context.Context, address solana.PublicKey) (*pool.Config, error) {
	cfg, ok := p.pools[address]
	if !ok {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s", address)
	}
	return cfg.Clone(), nil
}

func (p *poolTable) Create(_ context.Context, cfg *pool.Config) error {
	if _, ok := p.pools[cfg.Address]; ok {
		return ammerrors.ErrPoolExists.Wrapf("%s", cfg.Address)
	}
	p.pools[cfg.Address] = cfg.Clone()
	return nil
}

func (p *poolTable) Update(_ context.Context, cfg *pool.Config) error {
	if _, ok := p.pools[cfg.Address]; !ok {
		return ammerrors.ErrPoolNotFound.Wrapf("%s", cfg.Address)
	}
	p.pools[cfg.Address] = cfg.Clone()
	return nil
}

func (p *poolTable) List(_ context.Context) ([]*pool.Config, error) {
	out := make([]*pool.Config, 0, len(p.pools))
	for _, cfg := range p.pools {
		out = append(out, cfg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}

func clonePools(in map[solana.PublicKey]*pool.Config) map[solana.PublicKey]*pool.Config {
	out := make(map[solana.PublicKey]*pool.Config, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

var (
	_ storage.Store   = (*Store)(nil)
	_ pool.Repository = (*poolTable)(nil)
)
