package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/pool"
)

var (
	pdaMintX string
	pdaMintY string
	pdaSeed  uint64
)

var pdaCmd = &cobra.Command{
	Use:   "pda",
	Short: "Derive the addresses of a pool",
	Long: `Derive the config, authority and LP mint addresses of the pool over
(mint-x, mint-y, seed), plus the vault token accounts owned by the authority.

Example:
  amm pda --mint-x <MINT> --mint-y <MINT> --seed 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := programID()
		if err != nil {
			return err
		}
		mintX, err := parseKey("mint-x", pdaMintX)
		if err != nil {
			return err
		}
		mintY, err := parseKey("mint-y", pdaMintY)
		if err != nil {
			return err
		}

		addrs, err := pool.Derive(program, mintX, mintY, pdaSeed)
		if err != nil {
			return err
		}
		vaultX, _, err := solana.FindAssociatedTokenAddress(addrs.Authority.Address, mintX)
		if err != nil {
			return err
		}
		vaultY, _, err := solana.FindAssociatedTokenAddress(addrs.Authority.Address, mintY)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Program:   %s\n", program)
		fmt.Fprintf(w, "Config:    %s (bump %d)\n", addrs.Config, addrs.ConfigBump)
		fmt.Fprintf(w, "Authority: %s (bump %d)\n", addrs.Authority.Address, addrs.Authority.Bump)
		fmt.Fprintf(w, "LP mint:   %s (bump %d)\n", addrs.LPMint, addrs.LPBump)
		fmt.Fprintf(w, "Vault X:   %s\n", vaultX)
		fmt.Fprintf(w, "Vault Y:   %s\n", vaultY)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pdaCmd)

	pdaCmd.Flags().StringVar(&pdaMintX, "mint-x", "", "mint of asset X (required)")
	pdaCmd.Flags().StringVar(&pdaMintY, "mint-y", "", "mint of asset Y (required)")
	pdaCmd.Flags().Uint64Var(&pdaSeed, "seed", 0, "pool seed")
	cobra.CheckErr(pdaCmd.MarkFlagRequired("mint-x"))
	cobra.CheckErr(pdaCmd.MarkFlagRequired("mint-y"))
}
