package solana

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// Wallet holds a keypair acting as a liquidity provider or trader.
type Wallet struct {
	privateKey solana.PrivateKey
}

func NewWallet() *Wallet {
	return &Wallet{privateKey: solana.NewWallet().PrivateKey}
}

func WalletFromBase58(key string) (*Wallet, error) {
	pk, err := solana.PrivateKeyFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{privateKey: pk}, nil
}

// WalletFromFile loads a solana-keygen JSON keypair.
func WalletFromFile(path string) (*Wallet, error) {
	pk, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair: %w", err)
	}
	return &Wallet{privateKey: pk}, nil
}

// SaveKeygenFile writes the keypair in the Solana CLI format, readable by
// WalletFromFile.
func (w *Wallet) SaveKeygenFile(path string) error {
	data, err := json.Marshal(toInts(w.privateKey))
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair: %w", err)
	}
	return nil
}

// json encodes []byte as base64; the keygen format is a list of numbers.
func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.privateKey.PublicKey()
}

// SignTransaction adds the wallet's signature to tx. The wallet must be one
// of the transaction's signers.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey()) {
			return &w.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

func (w *Wallet) String() string {
	return w.PublicKey().String()
}
