package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	id, err := cfg.AMM.Program()
	require.NoError(t, err)
	assert.Equal(t, DefaultProgramID, id.String())
	assert.Equal(t, "https://api.devnet.solana.com", cfg.Solana.GetRPCEndpoint())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
database:
  type: postgres
  postgres:
    host: db.internal
    port: 6543
`), 0o600))

	t.Setenv("AMM_SOLANA_NETWORK", "localnet")

	cfg, err := LoadWith(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.Equal(t, "amm", cfg.Database.Postgres.User, "unset keys keep defaults")
	assert.Equal(t, "localnet", cfg.Solana.Network)
	assert.Equal(t, "http://localhost:8899", cfg.Solana.GetRPCEndpoint())
	assert.Equal(t, "postgres://amm:@db.internal:6543/amm?sslmode=disable", cfg.Database.Postgres.ConnString())
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amm:\n  program_id: not-a-key\n"), 0o600))

	_, err := LoadWith(viper.New(), path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("database:\n  type: sqlite\n"), 0o600))
	_, err = LoadWith(viper.New(), path)
	require.ErrorContains(t, err, "unsupported database type")
}

func TestLoadMongoDB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  type: mongodb
  mongodb:
    database: ledger
`), 0o600))

	cfg, err := LoadWith(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb", cfg.Database.Type)
	assert.Equal(t, "ledger", cfg.Database.MongoDB.Database)
	assert.Equal(t, "mongodb://localhost:27017/?replicaSet=rs0", cfg.Database.MongoDB.URI)
	assert.Equal(t, uint64(100), cfg.Database.MongoDB.MaxPoolSize)
}
