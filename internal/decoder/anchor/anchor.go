// Package anchor encodes and decodes the pool program's Anchor instructions.
//
// Instruction data is an 8-byte discriminator, sha256("global:<name>")[:8],
// followed by the Borsh-encoded arguments.
//
// Example usage:
//
//	data, err := anchor.Encode(&anchor.SwapArgs{IsX: true, Amount: 100, Min: 90, Expiration: deadline})
//	...
//	ix, err := anchor.Decode(data)
//	swap := ix.(*anchor.SwapArgs)
package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/amm"
)

// DiscriminatorLength is the size of an Anchor instruction discriminator.
const DiscriminatorLength = 8

// Discriminator identifies an instruction.
type Discriminator [DiscriminatorLength]byte

// ComputeDiscriminator returns sha256("global:<name>")[:8].
func ComputeDiscriminator(name string) Discriminator {
	hash := sha256.Sum256([]byte("global:" + name))
	var d Discriminator
	copy(d[:], hash[:DiscriminatorLength])
	return d
}

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

var (
	InitializeDiscriminator = ComputeDiscriminator("initialize")
	DepositDiscriminator    = ComputeDiscriminator("deposit")
	WithdrawDiscriminator   = ComputeDiscriminator("withdraw")
	SwapDiscriminator       = ComputeDiscriminator("swap")
)

// Instruction is implemented by every argument struct.
type Instruction interface {
	Name() string
	Discriminator() Discriminator
}

// InitializeArgs creates a pool.
type InitializeArgs struct {
	Seed      uint64            `json:"seed"`
	Fee       uint16            `json:"fee"`
	Authority *solana.PublicKey `json:"authority,omitempty" bin:"optional"`
}

func (*InitializeArgs) Name() string                 { return "initialize" }
func (*InitializeArgs) Discriminator() Discriminator { return InitializeDiscriminator }

// DepositArgs mints Amount LP shares for at most MaxX and MaxY.
type DepositArgs struct {
	Amount     uint64 `json:"amount"`
	MaxX       uint64 `json:"max_x"`
	MaxY       uint64 `json:"max_y"`
	Expiration int64  `json:"expiration"`
}

func (*DepositArgs) Name() string                 { return "deposit" }
func (*DepositArgs) Discriminator() Discriminator { return DepositDiscriminator }

// Request binds the arguments to a pool and user.
func (a *DepositArgs) Request(pool, user solana.PublicKey) amm.DepositRequest {
	return amm.DepositRequest{
		Pool: pool, User: user, Shares: a.Amount, MaxX: a.MaxX, MaxY: a.MaxY, Expiration: a.Expiration,
	}
}

// WithdrawArgs burns Amount LP shares for at least MinX and MinY.
type WithdrawArgs struct {
	Amount     uint64 `json:"amount"`
	MinX       uint64 `json:"min_x"`
	MinY       uint64 `json:"min_y"`
	Expiration int64  `json:"expiration"`
}

func (*WithdrawArgs) Name() string                 { return "withdraw" }
func (*WithdrawArgs) Discriminator() Discriminator { return WithdrawDiscriminator }

// Request binds the arguments to a pool and user.
func (a *WithdrawArgs) Request(pool, user solana.PublicKey) amm.WithdrawRequest {
	return amm.WithdrawRequest{
		Pool: pool, User: user, Shares: a.Amount, MinX: a.MinX, MinY: a.MinY, Expiration: a.Expiration,
	}
}

// SwapArgs sells Amount of X (IsX) or Y for at least Min of the other.
type SwapArgs struct {
	IsX        bool   `json:"is_x"`
	Amount     uint64 `json:"amount"`
	Min        uint64 `json:"min"`
	Expiration int64  `json:"expiration"`
}

func (*SwapArgs) Name() string                 { return "swap" }
func (*SwapArgs) Discriminator() Discriminator { return SwapDiscriminator }

// Request binds the arguments to a pool and user.
func (a *SwapArgs) Request(pool, user solana.PublicKey) amm.SwapRequest {
	return amm.SwapRequest{
		Pool: pool, User: user, IsX: a.IsX, Amount: a.Amount, MinOut: a.Min, Expiration: a.Expiration,
	}
}

// Encode serializes ix with its discriminator.
func Encode(ix Instruction) ([]byte, error) {
	data, err := bin.MarshalBorsh(ix)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ix.Name(), err)
	}
	disc := ix.Discriminator()
	return append(disc[:], data...), nil
}

// Decode parses instruction data into one of the argument structs.
func Decode(data []byte) (Instruction, error) {
	if len(data) < DiscriminatorLength {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(data))
	}

	var disc Discriminator
	copy(disc[:], data[:DiscriminatorLength])
	payload := data[DiscriminatorLength:]

	var ix Instruction
	switch disc {
	case InitializeDiscriminator:
		ix = &InitializeArgs{}
	case DepositDiscriminator:
		ix = &DepositArgs{}
	case WithdrawDiscriminator:
		ix = &WithdrawArgs{}
	case SwapDiscriminator:
		ix = &SwapArgs{}
	default:
		return nil, fmt.Errorf("unknown instruction discriminator: %s", disc)
	}

	if err := bin.UnmarshalBorsh(ix, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ix.Name(), err)
	}
	return ix, nil
}
