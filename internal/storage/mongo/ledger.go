package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/ledger"
)

type assetDoc struct {
	ID        string `bson:"_id"`
	Authority string `bson:"authority,omitempty"`
	Supply    string `bson:"supply"`
}

type balanceDoc struct {
	ID     string `bson:"_id"`
	Asset  string `bson:"asset"`
	Owner  string `bson:"owner"`
	Amount string `bson:"amount"`
}

type assetRow struct {
	asset     solana.PublicKey
	authority solana.PublicKey
	supply    uint64
}

func (d *assetDoc) row() (*assetRow, error) {
	a := &assetRow{}
	var err error
	if a.asset, err = parseKey(d.ID); err != nil {
		return nil, err
	}
	if d.Authority != "" {
		if a.authority, err = parseKey(d.Authority); err != nil {
			return nil, err
		}
	}
	if a.supply, err = parseAmount(d.Supply); err != nil {
		return nil, err
	}
	return a, nil
}

func balanceID(asset, owner solana.PublicKey) string {
	return asset.String() + ":" + owner.String()
}

// mongoLedger is a ledger.Ledger whose calls run inside the session carried
// by ctx. Every balance it reads on a mutating path is also written, so
// concurrent transactions over the same accounts surface as write conflicts.
type mongoLedger struct {
	assets   *mongo.Collection
	balances *mongo.Collection
}

func (l *mongoLedger) loadAsset(ctx context.Context, asset solana.PublicKey) (*assetRow, error) {
	var doc assetDoc
	err := l.assets.FindOne(ctx, bson.M{"_id": asset.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ammerrors.ErrInvalidAsset.Wrapf("unknown asset %s", asset)
	}
	if err != nil {
		return nil, err
	}
	return doc.row()
}

func (l *mongoLedger) balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error) {
	var doc balanceDoc
	err := l.balances.FindOne(ctx, bson.M{"_id": balanceID(asset, owner)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseAmount(doc.Amount)
}

func (l *mongoLedger) setBalance(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	id := balanceID(asset, owner)
	if amount == 0 {
		_, err := l.balances.DeleteOne(ctx, bson.M{"_id": id})
		return err
	}
	_, err := l.balances.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"asset": asset.String(), "owner": owner.String(), "amount": formatAmount(amount)}},
		options.Update().SetUpsert(true))
	return err
}

func (l *mongoLedger) setSupply(ctx context.Context, asset solana.PublicKey, supply uint64) error {
	_, err := l.assets.UpdateOne(ctx,
		bson.M{"_id": asset.String()},
		bson.M{"$set": bson.M{"supply": formatAmount(supply)}})
	return err
}

func (l *mongoLedger) credit(ctx context.Context, a *assetRow, owner solana.PublicKey, amount uint64) error {
	if a.supply+amount < a.supply {
		return ammerrors.ErrArithmeticOverflow.Wrapf("supply of %s", a.asset)
	}
	held, err := l.balance(ctx, a.asset, owner)
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
func (l *mongoLedger) CreateAsset(ctx context.Context, asset, authority solana.PublicKey) error {
	if asset.IsZero() {
		return ammerrors.ErrInvalidAsset.Wrapf("zero asset id")
	}
	_, err := l.assets.InsertOne(ctx, assetDoc{ID: asset.String(), Authority: authority.String(), Supply: "0"})
	if mongo.IsDuplicateKeyError(err) {
		return ammerrors.ErrInvalidAsset.Wrapf("asset %s already exists", asset)
	}
	return err
}

// Fund credits owner with an external asset, registering it without a mint
// authority when unknown.
func (l *mongoLedger) Fund(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	if _, err := l.assets.UpdateOne(ctx,
		bson.M{"_id": asset.String()},
		bson.M{"$setOnInsert": bson.M{"supply": "0"}},
		options.Update().SetUpsert(true)); err != nil {
		return err
	}
	a, err := l.loadAsset(ctx, asset)
	if err != nil {
		return err
	}
	return l.credit(ctx, a, owner, amount)
}

func (l *mongoLedger) Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error) {
	if _, err := l.loadAsset(ctx, asset); err != nil {
		return 0, err
	}
	return l.balance(ctx, asset, owner)
}

func (l *mongoLedger) Supply(ctx context.Context, asset solana.PublicKey) (uint64, error) {
	a, err := l.loadAsset(ctx, asset)
	if err != nil {
		return 0, err
	}
	return a.supply, nil
}

func (l *mongoLedger) Move(ctx context.Context, asset, from, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	if _, err := l.loadAsset(ctx, asset); err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot move funds of %s", signer, from)
	}

	src, err := l.balance(ctx, asset, from)
	if err != nil {
		return err
	}
	if src < amount {
		return ammerrors.ErrInsufficientBalance.Wrapf("%s holds %d of %s, needs %d", from, src, asset, amount)
	}
	if from.Equals(to) {
		return nil
	}
	dst, err := l.balance(ctx, asset, to)
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

func (l *mongoLedger) Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := l.loadAsset(ctx, asset)
	if err != nil {
		return err
	}
	if a.authority.IsZero() || !a.authority.Equals(signer) {
		return ammerrors.ErrUnauthorized.Wrapf("%s is not the mint authority of %s", signer, asset)
	}
	return l.credit(ctx, a, to, amount)
}

func (l *mongoLedger) Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64, signer solana.PublicKey) error {
	a, err := l.loadAsset(ctx, asset)
	if err != nil {
		return err
	}
	if !signer.Equals(from) {
		return ammerrors.ErrUnauthorized.Wrapf("%s cannot burn funds of %s", signer, from)
	}

	held, err := l.balance(ctx, asset, from)
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

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stored amount %q: %w", s, err)
	}
	return v, nil
}

func parseKey(s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("stored key %q: %w", s, err)
	}
	return key, nil
}

var (
	_ ledger.Ledger         = (*mongoLedger)(nil)
	_ ledger.AssetRegistrar = (*mongoLedger)(nil)
)
