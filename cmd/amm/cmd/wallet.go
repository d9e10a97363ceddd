package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	ammsolana "github.com/lugondev/go-amm/internal/solana"
)

var walletOut string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Keypair management commands",
	Long:  `Commands for creating and inspecting the keypairs used to sign planned transactions.`,
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new keypair",
	Long:  `Generate a new keypair and write it in the Solana CLI format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := ammsolana.NewWallet()
		if err := w.SaveKeygenFile(walletOut); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Public Key: %s\n", w)
		fmt.Fprintf(cmd.OutOrStdout(), "Saved to:   %s\n", walletOut)
		return nil
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show <keypair.json>",
	Short: "Print the public key of a keypair file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := ammsolana.WalletFromFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), w)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd, walletShowCmd)

	walletNewCmd.Flags().StringVarP(&walletOut, "out", "o", "id.json", "keypair output path")
}
