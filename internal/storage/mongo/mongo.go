// Package mongo implements storage.Store on MongoDB.
//
// Atomic calls run as multi-document transactions with snapshot reads and
// majority writes, so the server must be a replica set or sharded cluster.
// Amounts are stored as decimal strings to keep the full uint64 range.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/ledger"
	"github.com/lugondev/go-amm/internal/pool"
	"github.com/lugondev/go-amm/internal/storage"
)

const (
	assetsCollection   = "amm_assets"
	balancesCollection = "amm_balances"
	poolsCollection    = "amm_pools"
)

// Store is a MongoDB-backed storage.Store.
type Store struct {
	common.LoggerMixin
	client   *mongo.Client
	database *mongo.Database
	assets   *mongo.Collection
	balances *mongo.Collection
	pools    *mongo.Collection
}

// NewStore connects using cfg, ensures indexes and returns the store.
func NewStore(ctx context.Context, cfg *config.MongoDBConfig) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetRetryWrites(true).
		SetRetryReads(true)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	s := &Store{
		LoggerMixin: common.NewLoggerMixin(),
		client:      client,
		database:    database,
		assets:      database.Collection(assetsCollection),
		balances:    database.Collection(balancesCollection),
		pools:       database.Collection(poolsCollection),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: s.balances,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "asset", Value: 1}, {Key: "owner", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "owner", Value: 1}}},
			},
		},
		{
			collection: s.pools,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "mint_x", Value: 1}, {Key: "mint_y", Value: 1}}},
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateMany(ctx, idx.models); err != nil {
			return err
		}
	}

	// Collections cannot be created implicitly inside a transaction on older
	// servers.
	for _, name := range []string{assetsCollection, poolsCollection} {
		err := s.database.CreateCollection(ctx, name)
		var cmdErr mongo.CommandError
		if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
			return err
		}
	}
	return nil
}

// Atomic implements storage.Store. The driver replays fn on transient
// transaction errors such as write conflicts.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	attempt := 0
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempt++
		if attempt > 1 {
			s.GetLogger().Debug("retrying transaction", zap.Int("attempt", attempt))
		}
		tx := &mongoTx{
			ledger: &mongoLedger{assets: s.assets, balances: s.balances},
			pools:  &mongoPools{collection: s.pools},
		}
		return nil, fn(sc, tx)
	}, txnOpts)
	return err
}

// Fund credits owner with amount of an external asset in its own transaction.
func (s *Store) Fund(ctx context.Context, asset, owner solana.PublicKey, amount uint64) error {
	return s.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.(*mongoTx).ledger.Fund(ctx, asset, owner, amount)
	})
}

func (s *Store) Close() error {
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.client.Disconnect(ctx)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

type mongoTx struct {
	ledger *mongoLedger
	pools  *mongoPools
}

func (t *mongoTx) Ledger() ledger.Ledger   { return t.ledger }
func (t *mongoTx) Pools() pool.Repository { return t.pools }

func init() {
	storage.RegisterMongoFactory(func(ctx context.Context, cfg *config.MongoDBConfig) (storage.Store, error) {
		store, err := NewStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create mongo store: %w", err)
		}
		return store, nil
	})
}

var _ storage.Store = (*Store)(nil)
