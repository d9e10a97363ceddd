package cmd

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/config"
)

var (
	cfgFile string

	appConfig *config.Config
	logger    = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amm",
	Short: "Constant-product AMM toolkit",
	Long: `amm is a CLI for a two-asset constant-product market maker.

It provides commands for:
- Quoting swaps, deposits and withdrawals from raw reserves
- Deriving pool, authority, LP mint and vault addresses
- Simulating scripted scenarios against a local ledger
- Decoding program instructions
- Planning token transfers against a live cluster`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.amm.yaml or $HOME/.amm.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("rpc", "", "Solana RPC endpoint (overrides --network)")
	rootCmd.PersistentFlags().String("network", "devnet", "Solana network (mainnet, devnet, testnet, localnet)")
	rootCmd.PersistentFlags().String("program", config.DefaultProgramID, "AMM program id")

	bind := map[string]string{
		"log.level":      "log-level",
		"solana.rpc":     "rpc",
		"solana.network": "network",
		"amm.program_id": "program",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding flag: %v\n", err)
		}
	}
}

func initConfig() {
	cfg, err := config.LoadWith(viper.GetViper(), cfgFile)
	cobra.CheckErr(err)
	appConfig = cfg

	l, err := common.NewLogger(cfg.Log)
	cobra.CheckErr(err)
	logger = l

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}
}

func programID() (solana.PublicKey, error) {
	return appConfig.AMM.Program()
}

func parseKey(name, value string) (solana.PublicKey, error) {
	k, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return k, nil
}
