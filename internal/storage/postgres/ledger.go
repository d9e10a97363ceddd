package postgres

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
)

// pgLedger is a ledger.Ledger bound to one open transaction.
type pgLedger struct {
	tx pgx.Tx
}

type assetRow struct {
	asset     solana.PublicKey
	authority solana.PublicKey
	supply    uint64
}

func scanAsset(row pgx.Row) (*assetRow, error) {
	var (
		asset, supply string
		authority     *string
	)
	if err := row.Scan(&asset, &authority, &supply); err != nil {
		return nil, err
	}

	a := &assetRow{}
	var err error
	if a.asset, err = parseKey(asset); err != nil {
		return nil, err
	}
	if authority != nil {
		if a.authority, err = parseKey(*authority); err != nil {
			return nil, err
		}
	}
	if a.supply, err = parseAmount(supply); err != nil {
		return nil, err
	}
	return a, nil
}

func (l *pgLedger) loadAsset(ctx context.Context, asset solana.PublicKey, forUpdate bool) (*assetRow, error) {
	query := `SELECT asset, authority, supply::text FROM amm_assets WHERE asset = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	a, err := QueryOne(l.tx, ctx, query, scanAsset, asset.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ammerrors.ErrInvalidAsset.Wrapf("unknown asset %s", asset)
	}
	return a, err
}

func (l *pgLedger) balance(ctx context.Context, asset, owner solana.PublicKey, forUpdate bool) (uint64, error) {
	query := `SELECT amount::text FROM amm_balances WHERE asset = $1 AND owner = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var amount string
	err := l.tx.QueryRow(ctx, query, asset.String(), owner.String()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseAmount(amount)
}

func (l *pgLedger) setBalance(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	if amount == 0 {
		_, err := l.tx.Exec(ctx,
			`DELETE FROM amm_balances WHERE asset = $1 AND owner = $2`,
			asset.String(), owner.String())
		return err
	}
	_, err := l.tx.Exec(ctx, `
		INSERT INTO amm_balances (asset, owner, amount, updated_at)
		VALUES ($1, $2, $3::numeric, NOW())
		ON CONFLICT (asset, owner) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`,
		asset.String(), owner.String(), formatAmount(amount))
	return err
}

func (l *pgLedger) setSupply(ctx context.Context, asset solana.PublicKey, supply uint64) error {
	_, err := l.tx.Exec(ctx,
		`UPDATE amm_assets SET supply = $2::numeric WHERE asset = $1`,
		asset.String(), formatAmount(supply))
	return err
}

func (l *pgLedger) credit(ctx context.Context, a *assetRow, owner solana.PublicKey, amount uint64) error {
	if a.supply+amount < a.supply {
		return ammerrors.ErrArithmeticOverflow.Wrapf("supply of %s", a.asset)
	}
	held, err := l.balance(ctx, a.asset, owner, true)
	if err != nil {
		return err
	}
	if held+amount < held {
		return ammerrors.ErrArithmeticOverflow.Wrapf("balance of %s in %s", owner, a.asset)
	}
	if err := l.setSupply(ctx, a.asset, a.supply+amount); err != nil {
		return err
	}
	return l.setBalance(ctx, a.asset, owner, held+amount)
}

// CreateAsset implements ledger.AssetRegistrar.
func (l *pgLedger) CreateAsset(ctx context.Context, asset, authority solana.PublicKey) error {
	if asset.IsZero() {
		return ammerrors.ErrInvalidAsset.Wrapf("zero asset id")
	}
	tag, err := l.tx.Exec(ctx,
		`INSERT INTO amm_assets (asset, authority) VALUES ($1, $2) ON CONFLICT (asset) DO NOTHING`,
		asset.String(), authority.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ammerrors.ErrInvalidAsset.Wrapf("asset %s already exists", asset)
	}
	return nil
}

// Fund credits owner with an external asset, registering it without a mint
// authority when unknown.
func (l *pgLedger) Fund(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	if _, err := l.tx.Exec(ctx,
		`INSERT INTO amm_assets (asset) VALUES ($1) ON CONFLICT (asset) DO NOTHING`,
		asset.String()); err != nil {
		return err
	}
	a, err := l.loadAsset(ctx, asset, true)
	if err != nil {
		return err
	}
	return l.credit(ctx, a, owner, amount)
}

func (l *pgLedger) Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error) {
	if _, err := l.loadAsset(ctx, asset, false); err != nil {
		return 0, err
	}
	return l.balance(ctx, asset, owner, false)
}

func (l *pgLedger) Supply(ctx context.Context, asset solana.PublicKey) (uint64, error) {
	a, err := l.loadAsset(ctx, asset, false)
	if err != nil {
		return 0, err
	}
	return a.supply, nil
}

func (l *pgLedger) Move(ctx context.Context, asset, from, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	if _, err := l.loadAsset(ctx, asset, false); err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot move funds of %s", signer, from)
	}

	src, err := l.balance(ctx, asset, from, true)
	if err != nil {
		return err
	}
	if src < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, needs %d", from, src, asset, amount)
	}
	if from.Equals(to) {
		return nil
	}
	dst, err := l.balance(ctx, asset, to, true)
	if err != nil {
		return err
	}
	if dst+amount < dst {
		return ammerrors.ErrArithmeticOverflow.Wrapf("balance of %s in %s", to, asset)
	}

	if err := l.setBalance(ctx, asset, from, src-amount); err != nil {
		return err
	}
	return l.setBalance(ctx, asset, to, dst+amount)
}

func (l *pgLedger) Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := l.loadAsset(ctx, asset, true)
	if err != nil {
		return err
	}
	if a.authority.IsZero() || !a.authority.Equals(signer) {
		return ammerrors.ErrUnauthorized.Wrapf("%s is not the mint authority of %s", signer, asset)
	}
	return l.credit(ctx, a, to, amount)
}

func (l *pgLedger) Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := l.loadAsset(ctx, asset, true)
	if err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot burn funds of %s", signer, from)
	}

	held, err := l.balance(ctx, asset, from, true)
	if err != nil {
		return err
	}
	if held < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, burns %d", from, held, asset, amount)
	}
	if err := l.setBalance(ctx, asset, from, held-amount); err != nil {
		return err
	}
	return l.setSupply(ctx, asset, a.supply-amount)
}

var (
	_ ledger.Ledger         = (*pgLedger)(nil)
	_ ledger.AssetRegistrar = (*pgLedger)(nil)
)
