package storage

import (
	"context"

	"github.com/lugondev/go-amm/internal/config"
)

var (
	memoryFactory   func(context.Context) (Store, error)
	postgresFactory func(context.Context, *config.PostgresConfig) (Store, error)
	mongoFactory    func(context.Context, *config.MongoDBConfig) (Store, error)
)

func RegisterMemoryFactory(factory func(context.Context) (Store, error)) {
	memoryFactory = factory
}

func RegisterPostgresFactory(factory func(context.Context, *config.PostgresConfig) (Store, error)) {
	postgresFactory = factory
}

func RegisterMongoFactory(factory func(context.Context, *config.MongoDBConfig) (Store, error)) {
	mongoFactory = factory
}

func NewMemoryStoreFromConfig(ctx context.Context) (Store, error) {
	if memoryFactory == nil {
		panic("memory factory not registered - import _ \"github.com/lugondev/go-amm/internal/storage/memory\"")
	}
	return memoryFactory(ctx)
}

func NewPostgresStoreFromConfig(ctx context.Context, cfg *config.PostgresConfig) (Store, error) {
	if postgresFactory == nil {
		panic("postgres factory not registered - import _ \"github.com/lugondev/go-amm/internal/storage/postgres\"")
	}
	return postgresFactory(ctx, cfg)
}

func NewMongoStoreFromConfig(ctx context.Context, cfg *config.MongoDBConfig) (Store, error) {
	if mongoFactory == nil {
		panic("mongo factory not registered - import _ \"github.com/lugondev/go-amm/internal/storage/mongo\"")
	}
	return mongoFactory(ctx, cfg)
}
