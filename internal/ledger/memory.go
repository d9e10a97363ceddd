package ledger

import (
	"context"
	"sort"

	"github.com/gagliardetto/solana-go"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

type assetState struct {
	authority solana.PublicKey
	supply    uint64
}

// Memory is an in-process Ledger. It is not safe for concurrent use; callers
// serialize access, typically by cloning it inside a store transaction.
type Memory struct {
	assets   map[solana.PublicKey]*assetState
	balances map[AccountKey]uint64
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		assets:   make(map[solana.PublicKey]*assetState),
		balances: make(map[AccountKey]uint64),
	}
}

// Clone returns an independent deep copy.
func (m *Memory) Clone() *Memory {
	cp := &Memory{
		assets:   make(map[solana.PublicKey]*assetState, len(m.assets)),
		balances: make(map[AccountKey]uint64, len(m.balances)),
	}
	for k, v := range m.assets {
		a := *v
		cp.assets[k] = &a
	}
	for k, v := range m.balances {
		cp.balances[k] = v
	}
	return cp
}

// CreateAsset implements AssetRegistrar.
func (m *Memory) CreateAsset(_ context.Context, asset, authority solana.PublicKey) error {
	if asset.IsZero() {
		return ammerrors.ErrInvalidAsset.Wrapf("zero asset id")
	}
	if _, ok := m.assets[asset]; ok {
		return ammerrors.ErrInvalidAsset.Wrapf("asset %s already exists", asset)
	}
	m.assets[asset] = &assetState{authority: authority}
	return nil
}

// Fund credits owner with amount of asset, registering the asset with no mint
// authority if it is unknown. It is meant for seeding balances of external
// assets, outside any operation.
func (m *Memory) Fund(asset, owner solana.PublicKey, amount uint64) error {
	a, ok := m.assets[asset]
	if !ok {
		a = &assetState{}
		m.assets[asset] = a
	}
	return m.credit(a, AccountKey{Asset: asset, Owner: owner}, amount)
}

// Balance implements Ledger.
func (m *Memory) Balance(_ context.Context, asset, owner solana.PublicKey) (uint64, error) {
	if _, err := m.asset(asset); err != nil {
		return 0, err
	}
	return m.balances[AccountKey{Asset: asset, Owner: owner}], nil
}

// Supply implements Ledger.
func (m *Memory) Supply(_ context.Context, asset solana.PublicKey) (uint64, error) {
	a, err := m.asset(asset)
	if err != nil {
		return 0, err
	}
	return a.supply, nil
}

// Move implements Ledger.
func (m *Memory) Move(_ context.Context, asset, from, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	if _, err := m.asset(asset); err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot move funds of %s", signer, from)
	}

	src := AccountKey{Asset: asset, Owner: from}
	dst := AccountKey{Asset: asset, Owner: to}
	if m.balances[src] < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, needs %d", from, m.balances[src], asset, amount)
	}
	if src == dst {
		return nil
	}
	if m.balances[dst]+amount < m.balances[dst] {
		return ammerrors.ErrArithmeticOverflow.Wrapf("balance of %s in %s", to, asset)
	}

	m.balances[src] -= amount
	m.balances[dst] += amount
	m.prune(src)
	return nil
}

// Mint implements Ledger.
func (m *Memory) Mint(_ context.Context, asset, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := m.asset(asset)
	if err != nil {
		return err
	}
	if a.authority.IsZero() || !a.authority.Equals(signer) {
		return ammerrors.ErrUnauthorized.Wrapf("%s is not the mint authority of %s", signer, asset)
	}
	return m.credit(a, AccountKey{Asset: asset, Owner: to}, amount)
}

// Burn implements Ledger.
func (m *Memory) Burn(_ context.Context, asset, from solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := m.asset(asset)
	if err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot burn funds of %s", signer, from)
	}

	key := AccountKey{Asset: asset, Owner: from}
	if m.balances[key] < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, burns %d", from, m.balances[key], asset, amount)
	}
	m.balances[key] -= amount
	a.supply -= amount
	m.prune(key)
	return nil
}

// Accounts returns every non-zero balance, ordered by asset then owner.
func (m *Memory) Accounts() map[AccountKey]uint64 {
	out := make(map[AccountKey]uint64, len(m.balances))
	for k, v := range m.balances {
		out[k] = v
	}
	return out
}

// SortedKeys orders account keys by asset then owner for stable output.
func SortedKeys(accounts map[AccountKey]uint64) []AccountKey {
	keys := make([]AccountKey, 0, len(accounts))
	for k := range accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := keys[i].Asset.String(); c != keys[j].Asset.String() {
			return c < keys[j].Asset.String()
		}
		return keys[i].Owner.String() < keys[j].Owner.String()
	})
	return keys
}

func (m *Memory) asset(asset solana.PublicKey) (*assetState, error) {
	a, ok := m.assets[asset]
	if !ok {
		return nil, ammerrors.ErrInvalidAsset.Wrapf("unknown asset %s", asset)
	}
	return a, nil
}

func (m *Memory) credit(a *assetState, key AccountKey, amount uint64) error {
	if a.supply+amount < a.supply {
		return ammerrors.ErrArithmeticOverflow.Wrapf("supply of %s", key.Asset)
	}
	if m.balances[key]+amount < m.balances[key] {
		return ammerrors.ErrArithmeticOverflow.Wrapf("balance of %s in %s", key.Owner, key.Asset)
	}
	a.supply += amount
	m.balances[key] += amount
	m.prune(key)
	return nil
}

func (m *Memory) prune(key AccountKey) {
	if m.balances[key] == 0 {
		delete(m.balances, key)
	}
}

var (
	_ Ledger         = (*Memory)(nil)
	_ AssetRegistrar = (*Memory)(nil)
)
