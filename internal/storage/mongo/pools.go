package mongo

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/pool"
)

type poolDoc struct {
	Address    string  `bson:"_id"`
	Seed       string  `bson:"seed"`
	MintX      string  `bson:"mint_x"`
	MintY      string  `bson:"mint_y"`
	LPMint     string  `bson:"lp_mint"`
	FeeBps     int32   `bson:"fee_bps"`
	Locked     bool    `bson:"locked"`
	Authority  *string `bson:"authority"`
	ConfigBump int32   `bson:"config_bump"`
	AuthBump   int32   `bson:"auth_bump"`
	LPBump     int32   `bson:"lp_bump"`
	Rev        int64   `bson:"rev"`
}

func toPoolDoc(cfg *pool.Config) poolDoc {
	doc := poolDoc{
		Address:    cfg.Address.String(),
		Seed:       formatAmount(cfg.Seed),
		MintX:      cfg.MintX.String(),
		MintY:      cfg.MintY.String(),
		LPMint:     cfg.LPMint.String(),
		FeeBps:     int32(cfg.FeeBps),
		Locked:     cfg.Locked,
		ConfigBump: int32(cfg.ConfigBump),
		AuthBump:   int32(cfg.AuthBump),
		LPBump:     int32(cfg.LPBump),
	}
	if cfg.Authority != nil {
		s := cfg.Authority.String()
		doc.Authority = &s
	}
	return doc
}

func (d *poolDoc) config() (*pool.Config, error) {
	cfg := &pool.Config{
		FeeBps:     uint16(d.FeeBps),
		Locked:     d.Locked,
		ConfigBump: uint8(d.ConfigBump),
		AuthBump:   uint8(d.AuthBump),
		LPBump:     uint8(d.LPBump),
	}
	var err error
	if cfg.Address, err = parseKey(d.Address); err != nil {
		return nil, err
	}
	if cfg.Seed, err = parseAmount(d.Seed); err != nil {
		return nil, err
	}
	if cfg.MintX, err = parseKey(d.MintX); err != nil {
		return nil, err
	}
	if cfg.MintY, err = parseKey(d.MintY); err != nil {
		return nil, err
	}
	if cfg.LPMint, err = parseKey(d.LPMint); err != nil {
		return nil, err
	}
	if d.Authority != nil {
		key, err := parseKey(*d.Authority)
		if err != nil {
			return nil, err
		}
		cfg.Authority = &key
	}
	return cfg, nil
}

// mongoPools is a pool.Repository whose calls run inside the session carried
// by ctx.
type mongoPools struct {
	collection *mongo.Collection
}

// Get bumps the pool's revision so that two transactions operating on the
// same pool always conflict, even when neither changes its config.
func (r *mongoPools) Get(ctx context.Context, address solana.PublicKey) (*pool.Config, error) {
	var doc poolDoc
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": address.String()},
		bson.M{"$inc": bson.M{"rev": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ammerrors.ErrPoolNotFound.Wrapf("%s", address)
	}
	if err != nil {
		return nil, err
	}
	return doc.config()
}

func (r *mongoPools) Create(ctx context.Context, cfg *pool.Config) error {
	_, err := r.collection.InsertOne(ctx, toPoolDoc(cfg))
	if mongo.IsDuplicateKeyError(err) {
		return ammerrors.ErrPoolExists.Wrapf("%s", cfg.Address)
	}
	return err
}

func (r *mongoPools) Update(ctx context.Context, cfg *pool.Config) error {
	doc := toPoolDoc(cfg)
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": doc.Address},
		bson.M{"$set": bson.M{"fee_bps": doc.FeeBps, "locked": doc.Locked, "authority": doc.Authority}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ammerrors.ErrPoolNotFound.Wrapf("%s", cfg.Address)
	}
	return nil
}

func (r *mongoPools) List(ctx context.Context) ([]*pool.Config, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []poolDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*pool.Config, 0, len(docs))
	for i := range docs {
		cfg, err := docs[i].config()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

var _ pool.Repository = (*mongoPools)(nil)
