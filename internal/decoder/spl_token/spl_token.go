// Package spl_token decodes the SPL Token instructions the pool emits.
//
// It understands the three instructions a pool operation can produce:
//   - TransferChecked, for deposits into and payouts from the vaults
//   - MintTo, for issuing liquidity shares
//   - Burn, for redeeming them
package spl_token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// SPL Token Program ID
var TokenProgramID = solana.TokenProgramID

// Token2022 Program ID
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// Kind names a decoded token instruction.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindMintTo   Kind = "mint_to"
	KindBurn     Kind = "burn"
)

// Event is a decoded token movement.
type Event struct {
	Kind        Kind             `json:"kind" yaml:"kind"`
	Mint        solana.PublicKey `json:"mint" yaml:"mint"`
	Source      solana.PublicKey `json:"source,omitempty" yaml:"source,omitempty"`
	Destination solana.PublicKey `json:"destination,omitempty" yaml:"destination,omitempty"`
	Authority   solana.PublicKey `json:"authority" yaml:"authority"`
	Amount      uint64           `json:"amount" yaml:"amount"`
	Decimals    uint8            `json:"decimals,omitempty" yaml:"decimals,omitempty"`
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	switch e.Kind {
	case KindTransfer:
		return fmt.Sprintf("transfer %d of %s from %s to %s (signed by %s)", e.Amount, e.Mint, e.Source, e.Destination, e.Authority)
	case KindMintTo:
		return fmt.Sprintf("mint %d of %s to %s (signed by %s)", e.Amount, e.Mint, e.Destination, e.Authority)
	default:
		return fmt.Sprintf("burn %d of %s from %s (signed by %s)", e.Amount, e.Mint, e.Source, e.Authority)
	}
}

// CanDecode reports whether ix targets a token program.
func CanDecode(ix solana.Instruction) bool {
	id := ix.ProgramID()
	return id.Equals(TokenProgramID) || id.Equals(Token2022ProgramID)
}

// Decode turns a token instruction into an Event.
func Decode(ix solana.Instruction) (*Event, error) {
	if !CanDecode(ix) {
		return nil, fmt.Errorf("instruction targets %s, not a token program", ix.ProgramID())
	}
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction data: %w", err)
	}

	decoded, err := token.DecodeInstruction(ix.Accounts(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token instruction: %w", err)
	}

	switch inst := decoded.Impl.(type) {
	case *token.TransferChecked:
		return &Event{
			Kind:        KindTransfer,
			Mint:        inst.GetMintAccount().PublicKey,
			Source:      inst.GetSourceAccount().PublicKey,
			Destination: inst.GetDestinationAccount().PublicKey,
			Authority:   inst.GetOwnerAccount().PublicKey,
			Amount:      *inst.Amount,
			Decimals:    *inst.Decimals,
		}, nil
	case *token.MintTo:
		return &Event{
			Kind:        KindMintTo,
			Mint:        inst.GetMintAccount().PublicKey,
			Destination: inst.GetDestinationAccount().PublicKey,
			Authority:   inst.GetAuthorityAccount().PublicKey,
			Amount:      *inst.Amount,
		}, nil
	case *token.Burn:
		return &Event{
			Kind:      KindBurn,
			Mint:      inst.GetMintAccount().PublicKey,
			Source:    inst.GetSourceAccount().PublicKey,
			Authority: inst.GetOwnerAccount().PublicKey,
			Amount:    *inst.Amount,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported token instruction %T", decoded.Impl)
	}
}

// DecodeAll decodes every token instruction in ixs, skipping the others.
func DecodeAll(ixs []solana.Instruction) ([]*Event, error) {
	var events []*Event
	for i, ix := range ixs {
		if !CanDecode(ix) {
			continue
		}
		event, err := Decode(ix)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}
