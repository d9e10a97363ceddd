package anchor

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/pool"
)

// PoolAccounts are the accounts the pool instructions reference.
type PoolAccounts struct {
	User      solana.PublicKey
	MintX     solana.PublicKey
	MintY     solana.PublicKey
	LPMint    solana.PublicKey
	VaultX    solana.PublicKey
	VaultY    solana.PublicKey
	UserX     solana.PublicKey
	UserY     solana.PublicKey
	UserLP    solana.PublicKey
	Authority solana.PublicKey
	Config    solana.PublicKey
}

// NewPoolAccounts resolves every account of cfg for user. Vaults and user
// accounts are associated token accounts.
func NewPoolAccounts(programID, user solana.PublicKey, cfg *pool.Config) (*PoolAccounts, error) {
	auth, err := pool.AuthorityOf(programID, cfg)
	if err != nil {
		return nil, err
	}

	a := &PoolAccounts{
		User:      user,
		MintX:     cfg.MintX,
		MintY:     cfg.MintY,
		LPMint:    cfg.LPMint,
		Authority: auth.Address,
		Config:    cfg.Address,
	}

	atas := []struct {
		owner solana.PublicKey
		mint  solana.PublicKey
		out   *solana.PublicKey
	}{
		{auth.Address, cfg.MintX, &a.VaultX},
		{auth.Address, cfg.MintY, &a.VaultY},
		{user, cfg.MintX, &a.UserX},
		{user, cfg.MintY, &a.UserY},
		{user, cfg.LPMint, &a.UserLP},
	}
	for _, ata := range atas {
		addr, _, err := solana.FindAssociatedTokenAddress(ata.owner, ata.mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive token account of %s for %s: %w", ata.owner, ata.mint, err)
		}
		*ata.out = addr
	}
	return a, nil
}

// metas lists the accounts of ix in program order.
func (a *PoolAccounts) metas(ix Instruction) solana.AccountMetaSlice {
	ro := func(k solana.PublicKey) *solana.AccountMeta { return solana.Meta(k) }
	rw := func(k solana.PublicKey) *solana.AccountMeta { return solana.Meta(k).WRITE() }

	user := solana.Meta(a.User).SIGNER().WRITE()
	programs := solana.AccountMetaSlice{
		ro(solana.TokenProgramID),
		ro(solana.SPLAssociatedTokenAccountProgramID),
		ro(solana.SystemProgramID),
	}

	var out solana.AccountMetaSlice
	switch ix.(type) {
	case *InitializeArgs:
		out = solana.AccountMetaSlice{
			user, ro(a.MintX), ro(a.MintY), rw(a.LPMint), rw(a.VaultX), rw(a.VaultY),
			ro(a.Authority), rw(a.Config),
		}
	case *SwapArgs:
		out = solana.AccountMetaSlice{
			user, ro(a.MintX), ro(a.MintY), rw(a.VaultX), rw(a.VaultY),
			rw(a.UserX), rw(a.UserY), ro(a.Authority), ro(a.Config),
		}
	default:
		out = solana.AccountMetaSlice{
			user, ro(a.MintX), ro(a.MintY), rw(a.LPMint), rw(a.VaultX), rw(a.VaultY),
			rw(a.UserX), rw(a.UserY), rw(a.UserLP), ro(a.Authority), ro(a.Config),
		}
	}
	return append(out, programs...)
}

// Build creates a program instruction carrying ix.
func Build(programID solana.PublicKey, accounts *PoolAccounts, ix Instruction) (solana.Instruction, error) {
	data, err := Encode(ix)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts.metas(ix), data), nil
}
