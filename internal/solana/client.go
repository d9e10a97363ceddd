// Package solana adapts the pool engine to a live Solana cluster.
//
// Client reads vault balances, LP supply and pool config accounts over RPC.
// Planner is a storage.Store backed by those reads: running an engine
// operation against it computes the amounts from on-chain state and records
// the SPL Token instructions the program would issue, without sending
// anything.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/decoder/anchor"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

// RPC is the subset of *rpc.Client the adapter uses.
type RPC interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Client wraps the Solana RPC client
type Client struct {
	rpc        RPC
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// NewClient creates a client for the configured cluster.
func NewClient(cfg config.SolanaConfig) *Client {
	return NewClientWithRPC(rpc.New(cfg.GetRPCEndpoint()), cfg)
}

// NewClientWithRPC creates a client over an existing RPC implementation.
func NewClientWithRPC(r RPC, cfg config.SolanaConfig) *Client {
	commitment := rpc.CommitmentType(cfg.Commitment)
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:        r,
		commitment: commitment,
		timeout:    time.Duration(cfg.Timeout) * time.Second,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// TokenBalance returns the raw amount and decimals held by a token account.
func (c *Client) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get token balance of %s: %w", account, err)
	}
	return parseTokenAmount(result.Value, account)
}

// TokenSupply returns the raw supply and decimals of a mint.
func (c *Client) TokenSupply(ctx context.Context, mint solana.PublicKey) (uint64, uint8, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get token supply of %s: %w", mint, err)
	}
	return parseTokenAmount(result.Value, mint)
}

// PoolConfig fetches and decodes the config account at address.
func (c *Client) PoolConfig(ctx context.Context, programID, address solana.PublicKey) (*pool.Config, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s", address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account info of %s: %w", address, err)
	}
	if result == nil || result.Value == nil {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s", address)
	}
	if !result.Value.Owner.Equals(programID) {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s is owned by %s", address, result.Value.Owner)
	}
	return anchor.DecodeConfigAccount(programID, address, result.Value.Data.GetBinary())
}

// GetLatestBlockhash returns the latest blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, ammerrors.Wrap(err, "failed to get latest blockhash")
	}
	return result.Value.Blockhash, nil
}

func parseTokenAmount(v *rpc.UiTokenAmount, account solana.PublicKey) (uint64, uint8, error) {
	if v == nil {
		return 0, 0, fmt.Errorf("empty token amount for %s", account)
	}
	amount, err := strconv.ParseUint(v.Amount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid token amount %q for %s: %w", v.Amount, account, err)
	}
	return amount, v.Decimals, nil
}
