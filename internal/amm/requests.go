package amm

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/lugondev/go-amm/internal/curve"
)

// Op names an engine operation.
type Op string

const (
	OpInitialize   Op = "initialize"
	OpDeposit      Op = "deposit"
	OpWithdraw     Op = "withdraw"
	OpSwap         Op = "swap"
	OpLock         Op = "lock"
	OpUnlock       Op = "unlock"
	OpSetAuthority Op = "set_authority"
)

func (o Op) String() string { return string(o) }

// InitializeRequest creates a pool over (MintX, MintY, Seed).
type InitializeRequest struct {
	Payer     solana.PublicKey  `json:"payer" yaml:"payer"`
	MintX     solana.PublicKey  `json:"mint_x" yaml:"mint_x"`
	MintY     solana.PublicKey  `json:"mint_y" yaml:"mint_y"`
	Seed      uint64            `json:"seed" yaml:"seed"`
	FeeBps    uint16            `json:"fee_bps" yaml:"fee_bps"`
	Authority *solana.PublicKey `json:"authority,omitempty" yaml:"authority,omitempty"`
}

// DepositRequest mints Shares to User for at most MaxX and MaxY.
type DepositRequest struct {
	Pool       solana.PublicKey `json:"pool" yaml:"pool"`
	User       solana.PublicKey `json:"user" yaml:"user"`
	Shares     uint64           `json:"shares" yaml:"shares"`
	MaxX       uint64           `json:"max_x" yaml:"max_x"`
	MaxY       uint64           `json:"max_y" yaml:"max_y"`
	Expiration int64            `json:"expiration" yaml:"expiration"`
}

// WithdrawRequest burns Shares of User for at least MinX and MinY.
type WithdrawRequest struct {
	Pool       solana.PublicKey `json:"pool" yaml:"pool"`
	User       solana.PublicKey `json:"user" yaml:"user"`
	Shares     uint64           `json:"shares" yaml:"shares"`
	MinX       uint64           `json:"min_x" yaml:"min_x"`
	MinY       uint64           `json:"min_y" yaml:"min_y"`
	Expiration int64            `json:"expiration" yaml:"expiration"`
}

// SwapRequest sells Amount of X (IsX) or Y for at least MinOut of the other.
type SwapRequest struct {
	Pool       solana.PublicKey `json:"pool" yaml:"pool"`
	User       solana.PublicKey `json:"user" yaml:"user"`
	IsX        bool             `json:"is_x" yaml:"is_x"`
	Amount     uint64           `json:"amount" yaml:"amount"`
	MinOut     uint64           `json:"min_out" yaml:"min_out"`
	Expiration int64            `json:"expiration" yaml:"expiration"`
}

// Receipt records a successful operation.
type Receipt struct {
	ID   uuid.UUID        `json:"id"`
	Op   Op               `json:"op"`
	Pool solana.PublicKey `json:"pool"`
	User solana.PublicKey `json:"user"`
	At   time.Time        `json:"at"`

	// Deposit and withdraw.
	AmountX uint64 `json:"amount_x,omitempty"`
	AmountY uint64 `json:"amount_y,omitempty"`
	Shares  uint64 `json:"shares,omitempty"`

	// Swap.
	InputMint  solana.PublicKey `json:"input_mint,omitempty"`
	OutputMint solana.PublicKey `json:"output_mint,omitempty"`
	AmountIn   uint64           `json:"amount_in,omitempty"`
	AmountOut  uint64           `json:"amount_out,omitempty"`

	// Reserves is the pool snapshot after the operation, when it moved funds.
	Reserves *curve.Reserves `json:"reserves,omitempty"`
}

func (e *Engine) newReceipt(op Op, pool, user solana.PublicKey) *Receipt {
	return &Receipt{
		Op:   op,
		Pool: pool,
		User: user,
		At:   e.Now().UTC(),
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r *Receipt) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	switch r.Op {
	case OpDeposit, OpWithdraw:
		enc.AddUint64("amount_x", r.AmountX)
		enc.AddUint64("amount_y", r.AmountY)
		enc.AddUint64("shares", r.Shares)
	case OpSwap:
		enc.AddString("input_mint", r.InputMint.String())
		enc.AddUint64("amount_in", r.AmountIn)
		enc.AddUint64("amount_out", r.AmountOut)
	}
	if r.Reserves != nil {
		enc.AddString("reserves", r.Reserves.String())
	}
	return nil
}
