package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/curve"
)

var (
	quoteReserveX uint64
	quoteReserveY uint64
	quoteSupply   uint64
	quoteAmount   uint64
	quoteFeeBps   uint16
	quoteIsX      bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Evaluate the pricing curve",
	Long: `Evaluate the constant-product curve against reserves given on the command line.

Example:
  amm quote swap --reserve-x 1000 --reserve-y 1000 --amount 100 --fee-bps 30
  amm quote deposit --reserve-x 1000 --reserve-y 500 --supply 700 --amount 70
  amm quote withdraw --reserve-x 1000 --reserve-y 500 --supply 700 --amount 70`,
}

var quoteSwapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Quote the output of a swap",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := quoteReserveX, quoteReserveY
		if !quoteIsX {
			in, out = out, in
		}
		received, err := curve.SwapOutput(in, out, quoteAmount, quoteFeeBps)
		if err != nil {
			return err
		}
		afterFee, err := curve.AmountAfterFee(quoteAmount, quoteFeeBps)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Amount in:     %d (%d after %d bps fee)\n", quoteAmount, afterFee, quoteFeeBps)
		fmt.Fprintf(w, "Amount out:    %d\n", received)
		fmt.Fprintf(w, "Reserves after: in=%d out=%d\n", in+quoteAmount, out-received)
		return nil
	},
}

var quoteDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Quote the assets needed to mint LP shares",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := curve.Reserves{X: quoteReserveX, Y: quoteReserveY, Supply: quoteSupply}
		// An empty pool takes the reserves flags as the seeding amounts.
		need, err := curve.DepositAmounts(r, quoteAmount, curve.Amounts{X: quoteReserveX, Y: quoteReserveY})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Shares %d need x=%d y=%d\n", quoteAmount, need.X, need.Y)
		return nil
	},
}

var quoteWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Quote the assets paid for burning LP shares",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := curve.Reserves{X: quoteReserveX, Y: quoteReserveY, Supply: quoteSupply}
		out, err := curve.WithdrawAmounts(r, quoteAmount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Shares %d pay x=%d y=%d\n", quoteAmount, out.X, out.Y)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteSwapCmd, quoteDepositCmd, quoteWithdrawCmd)

	flags := quoteCmd.PersistentFlags()
	flags.Uint64Var(&quoteReserveX, "reserve-x", 0, "pool balance of X")
	flags.Uint64Var(&quoteReserveY, "reserve-y", 0, "pool balance of Y")
	flags.Uint64Var(&quoteAmount, "amount", 0, "swap input, or LP shares to mint or burn")

	quoteSwapCmd.Flags().Uint16Var(&quoteFeeBps, "fee-bps", 0, "pool fee in basis points")
	quoteSwapCmd.Flags().BoolVar(&quoteIsX, "is-x", true, "sell X for Y (false sells Y for X)")
	quoteDepositCmd.Flags().Uint64Var(&quoteSupply, "supply", 0, "outstanding LP shares")
	quoteWithdrawCmd.Flags().Uint64Var(&quoteSupply, "supply", 0, "outstanding LP shares")
}
