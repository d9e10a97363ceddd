// Package ledger defines the token ledger the AMM core moves value through.
//
// The core never touches balances directly. It reads a snapshot with Balance
// and Supply and then issues Move, Mint and Burn calls, each authorized by an
// explicit signer: the owner of the debited account for Move and Burn, the
// mint authority for Mint.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Ledger moves, mints and burns fungible assets.
type Ledger interface {
	// Balance returns the amount of asset held by owner.
	Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error)

	// Supply returns the outstanding supply of asset.
	Supply(ctx context.Context, asset solana.PublicKey) (uint64, error)

	// Move transfers amount of asset from one owner to another. signer must own from.
	Move(ctx context.Context, asset, from, to solana.PublicKey, amount uint64, signer solana.PublicKey) error

	// Mint creates amount of asset for to. signer must be the mint authority.
	Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64, signer solana.PublicKey) error

	// Burn destroys amount of asset held by from. signer must own from.
	Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64, signer solana.PublicKey) error
}

// AssetRegistrar is implemented by ledgers that can create new assets.
type AssetRegistrar interface {
	// CreateAsset registers asset with the given mint authority.
	CreateAsset(ctx context.Context, asset, authority solana.PublicKey) error
}

// AccountKey identifies one holder's balance of one asset.
type AccountKey struct {
	Asset solana.PublicKey
	Owner solana.PublicKey
}
