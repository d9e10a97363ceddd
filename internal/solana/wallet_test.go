package solana

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletKeygenFileRoundTrip(t *testing.T) {
	w := NewWallet()
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveKeygenFile(path))

	loaded, err := WalletFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())
	assert.Equal(t, w.PublicKey().String(), loaded.String())
}

func TestWalletFromBase58(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := WalletFromBase58(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	_, err = WalletFromBase58("not-a-key")
	require.Error(t, err)
}

func TestWalletSignTransaction(t *testing.T) {
	w := NewWallet()
	ix := solana.NewInstruction(testProgram, solana.AccountMetaSlice{solana.Meta(w.PublicKey()).SIGNER().WRITE()}, []byte{1})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	require.NoError(t, tx.VerifySignatures())

	other := NewWallet()
	tx, err = solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)
	require.Error(t, other.SignTransaction(tx))
}
