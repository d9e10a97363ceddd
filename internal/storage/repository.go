// Package storage provides the transactional stores the AMM engine runs its
// operations against.
//
// A Store executes a function atomically: every ledger and pool-repository
// call made through the Tx either commits together or not at all, and no two
// Atomic calls touching the same pool observe each other's partial state.
package storage

import (
	"context"

	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
)

// Tx is the view of a store inside one atomic unit of work.
type Tx interface {
	Ledger() ledger.Ledger
	Pools() pool.Repository
}

// Store runs atomic units of work.
type Store interface {
	// Atomic runs fn and commits its effects only if fn returns nil.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
	Ping(ctx context.Context) error
}
