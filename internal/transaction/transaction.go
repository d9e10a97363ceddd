// Package transaction decompiles transactions back into the pool and token
// instructions they carry.
package transaction

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/decoder/anchor"
	"github.com/lugondev/go-amm/internal/decoder/spl_token"
)

// Decoded is one top-level instruction of a transaction. At most one of Pool
// and Token is set.
type Decoded struct {
	Index     int
	ProgramID solana.PublicKey
	Accounts  solana.AccountMetaSlice

	// Pool is set for instructions of the AMM program.
	Pool anchor.Instruction
	// Token is set for SPL Token instructions.
	Token *spl_token.Event
}

// Parse reads a base64 wire transaction.
func Parse(encoded string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// Encode serializes tx to base64 wire format.
func Encode(tx *solana.Transaction) (string, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Instructions resolves the compiled instructions of tx against its static
// account keys.
func Instructions(tx *solana.Transaction) ([]solana.Instruction, error) {
	keys := tx.Message.AccountKeys
	out := make([]solana.Instruction, 0, len(tx.Message.Instructions))

	for i, compiled := range tx.Message.Instructions {
		if int(compiled.ProgramIDIndex) >= len(keys) {
			return nil, fmt.Errorf("instruction %d: program index %d out of %d keys", i, compiled.ProgramIDIndex, len(keys))
		}
		programID := keys[compiled.ProgramIDIndex]

		metas := make(solana.AccountMetaSlice, 0, len(compiled.Accounts))
		for _, idx := range compiled.Accounts {
			if int(idx) >= len(keys) {
				return nil, fmt.Errorf("instruction %d: account index %d out of %d keys", i, idx, len(keys))
			}
			key := keys[idx]
			meta := solana.Meta(key)
			if tx.Message.IsSigner(key) {
				meta.SIGNER()
			}
			metas = append(metas, meta)
		}

		out = append(out, solana.NewInstruction(programID, metas, compiled.Data))
	}
	return out, nil
}

// Decode decompiles tx and decodes every instruction addressed to programID
// or to a token program. Other instructions are returned undecoded.
func Decode(programID solana.PublicKey, tx *solana.Transaction) ([]*Decoded, error) {
	ixs, err := Instructions(tx)
	if err != nil {
		return nil, err
	}

	out := make([]*Decoded, 0, len(ixs))
	for i, ix := range ixs {
		d := &Decoded{Index: i, ProgramID: ix.ProgramID(), Accounts: ix.Accounts()}

		switch {
		case d.ProgramID.Equals(programID):
			data, err := ix.Data()
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			if d.Pool, err = anchor.Decode(data); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
		case spl_token.CanDecode(ix):
			if d.Token, err = spl_token.Decode(ix); err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
		}
		out = append(out, d)
	}
	return out, nil
}
