package amm

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/storage"
)

// EngineBuilder provides a fluent API for constructing an Engine.
type EngineBuilder struct {
	engine *Engine
}

// NewEngineBuilder creates a builder with default settings.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{engine: NewEngine(nil, solana.PublicKey{})}
}

// Store sets the store operations run against.
func (b *EngineBuilder) Store(s storage.Store) *EngineBuilder {
	b.engine.Store = s
	return b
}

// ProgramID sets the program that owns derived pool addresses.
func (b *EngineBuilder) ProgramID(id solana.PublicKey) *EngineBuilder {
	b.engine.ProgramID = id
	return b
}

// Metrics adds a metrics backend.
func (b *EngineBuilder) Metrics(m metrics.Metrics) *EngineBuilder {
	b.engine.Metrics.Add(m)
	return b
}

// Logger sets the logger.
func (b *EngineBuilder) Logger(logger *zap.Logger) *EngineBuilder {
	b.engine.SetLogger(logger)
	return b
}

// Clock overrides the clock used for expiration checks.
func (b *EngineBuilder) Clock(now func() time.Time) *EngineBuilder {
	if now != nil {
		b.engine.Now = now
	}
	return b
}

// Build validates and returns the engine.
func (b *EngineBuilder) Build() (*Engine, error) {
	if b.engine.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}
	if b.engine.ProgramID.IsZero() {
		return nil, fmt.Errorf("engine requires a program id")
	}
	return b.engine, nil
}
