package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// DefaultProgramID is the program the pool addresses are derived under.
const DefaultProgramID = "DpvM21fb8QHhdi4wSsSvK2mP5zc5oKqNLVH4QHqdEG2z"

// Config holds all configuration for the application
type Config struct {
	Solana   SolanaConfig   `mapstructure:"solana"`
	Log      LogConfig      `mapstructure:"log"`
	AMM      AMMConfig      `mapstructure:"amm"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// SolanaConfig holds Solana-specific configuration
type SolanaConfig struct {
	RPC        string `mapstructure:"rpc"`
	Network    string `mapstructure:"network"`
	Timeout    int    `mapstructure:"timeout"` // in seconds
	Commitment string `mapstructure:"commitment"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// AMMConfig holds pool engine configuration
type AMMConfig struct {
	ProgramID string `mapstructure:"program_id"`
}

// DatabaseConfig selects and configures the pool/ledger store
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory, postgres or mongodb
	Postgres PostgresConfig `mapstructure:"postgres"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MongoDBConfig holds MongoDB connection settings. Transactions need a
// replica set or sharded cluster.
type MongoDBConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	MinPoolSize    uint64 `mapstructure:"min_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // in seconds
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Solana: SolanaConfig{
			RPC:        "",
			Network:    "devnet",
			Timeout:    30,
			Commitment: "confirmed",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		AMM: AMMConfig{
			ProgramID: DefaultProgramID,
		},
		Database: DatabaseConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				User:            "amm",
				Database:        "amm",
				SSLMode:         "disable",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 300,
			},
			MongoDB: MongoDBConfig{
				URI:            "mongodb://localhost:27017/?replicaSet=rs0",
				Database:       "amm",
				MaxPoolSize:    100,
				MinPoolSize:    10,
				ConnectTimeout: 10,
			},
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "amm",
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith loads configuration using the given viper instance, so that flags
// bound to it take precedence over file and environment values.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".amm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper; AutomaticEnv only overrides keys
// viper already knows about.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("solana.rpc", cfg.Solana.RPC)
	v.SetDefault("solana.network", cfg.Solana.Network)
	v.SetDefault("solana.timeout", cfg.Solana.Timeout)
	v.SetDefault("solana.commitment", cfg.Solana.Commitment)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("amm.program_id", cfg.AMM.ProgramID)
	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.postgres.host", cfg.Database.Postgres.Host)
	v.SetDefault("database.postgres.port", cfg.Database.Postgres.Port)
	v.SetDefault("database.postgres.user", cfg.Database.Postgres.User)
	v.SetDefault("database.postgres.password", cfg.Database.Postgres.Password)
	v.SetDefault("database.postgres.database", cfg.Database.Postgres.Database)
	v.SetDefault("database.postgres.ssl_mode", cfg.Database.Postgres.SSLMode)
	v.SetDefault("database.postgres.max_open_conns", cfg.Database.Postgres.MaxOpenConns)
	v.SetDefault("database.postgres.max_idle_conns", cfg.Database.Postgres.MaxIdleConns)
	v.SetDefault("database.postgres.conn_max_lifetime", cfg.Database.Postgres.ConnMaxLifetime)
	v.SetDefault("database.mongodb.uri", cfg.Database.MongoDB.URI)
	v.SetDefault("database.mongodb.database", cfg.Database.MongoDB.Database)
	v.SetDefault("database.mongodb.max_pool_size", cfg.Database.MongoDB.MaxPoolSize)
	v.SetDefault("database.mongodb.min_pool_size", cfg.Database.MongoDB.MinPoolSize)
	v.SetDefault("database.mongodb.connect_timeout", cfg.Database.MongoDB.ConnectTimeout)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.AMM.Program(); err != nil {
		return err
	}
	switch c.Database.Type {
	case "memory", "postgres", "mongodb":
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}
	switch c.Log.Format {
	case "json", "console", "text":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Log.Format)
	}
	return nil
}

// Program parses the configured program id.
func (c *AMMConfig) Program() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid amm.program_id %q: %w", c.ProgramID, err)
	}
	return id, nil
}

// ConnString builds a PostgreSQL connection URL.
func (c *PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// GetRPCEndpoint returns the RPC endpoint for the configured network
func (c *SolanaConfig) GetRPCEndpoint() string {
	if c.RPC != "" {
		return c.RPC
	}

	switch c.Network {
	case "mainnet", "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	case "localnet", "localhost":
		return "http://localhost:8899"
	default:
		return "https://api.devnet.solana.com"
	}
}
