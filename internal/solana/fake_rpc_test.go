package solana

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// fakeRPC serves token balances, supplies and accounts from maps.
type fakeRPC struct {
	balances map[solana.PublicKey]uint64
	supplies map[solana.PublicKey]uint64
	accounts map[solana.PublicKey]*rpc.Account
	decimals uint8
	blockErr error

	balanceCalls int
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		balances: make(map[solana.PublicKey]uint64),
		supplies: make(map[solana.PublicKey]uint64),
		accounts: make(map[solana.PublicKey]*rpc.Account),
		decimals: 6,
	}
}

func (f *fakeRPC) amount(v uint64) *rpc.UiTokenAmount {
	return &rpc.UiTokenAmount{Amount: strconv.FormatUint(v, 10), Decimals: f.decimals}
}

func (f *fakeRPC) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.balanceCalls++
	v, ok := f.balances[account]
	if !ok {
		return nil, fmt.Errorf("could not find account %s", account)
	}
	return &rpc.GetTokenAccountBalanceResult{Value: f.amount(v)}, nil
}

func (f *fakeRPC) GetTokenSupply(_ context.Context, mint solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	v, ok := f.supplies[mint]
	if !ok {
		return nil, fmt.Errorf("invalid mint %s", mint)
	}
	return &rpc.GetTokenSupplyResult{Value: f.amount(v)}, nil
}

func (f *fakeRPC) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	acc, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.blockErr != nil {
		return nil, f.blockErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.HashFromBytes(make([]byte, 32))},
	}, nil
}

func (f *fakeRPC) setBalance(owner, mint solana.PublicKey, v uint64) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	f.balances[ata] = v
}
