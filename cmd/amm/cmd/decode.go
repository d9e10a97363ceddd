package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/decoder/anchor"
	"github.com/lugondev/go-amm/internal/transaction"
)

var decodeTx bool

var decodeCmd = &cobra.Command{
	Use:   "decode <hex|base58>",
	Short: "Decode AMM program instruction data",
	Long: `Decode the data of an initialize, deposit, withdraw or swap instruction.
Data prefixed with 0x, or made only of hex digits, is read as hex; anything
else as base58. With --tx the argument is a base64 transaction, such as the
output of "amm plan --keypair", and every instruction in it is decoded.

Example:
  amm decode 0x<instruction data>
  amm decode <base58 instruction data>
  amm decode --tx <base64 transaction>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if decodeTx {
			return runDecodeTx(cmd, args[0])
		}
		data, err := decodeData(args[0])
		if err != nil {
			return err
		}
		ix, err := anchor.Decode(data)
		if err != nil {
			return err
		}

		body, err := json.MarshalIndent(ix, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n%s\n", ix.Name(), ix.Discriminator(), body)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeTx, "tx", false, "decode a base64 transaction")
}

func runDecodeTx(cmd *cobra.Command, encoded string) error {
	program, err := programID()
	if err != nil {
		return err
	}
	tx, err := transaction.Parse(encoded)
	if err != nil {
		return err
	}
	decoded, err := transaction.Decode(program, tx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, d := range decoded {
		switch {
		case d.Pool != nil:
			body, err := json.Marshal(d.Pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "#%d %s %s\n", d.Index, d.Pool.Name(), body)
		case d.Token != nil:
			fmt.Fprintf(w, "#%d %s\n", d.Index, d.Token)
		default:
			fmt.Fprintf(w, "#%d program %s (%d accounts)\n", d.Index, d.ProgramID, len(d.Accounts))
		}
	}
	return nil
}

func decodeData(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		return hex.DecodeString(h)
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("data is neither hex nor base58: %w", err)
	}
	return b, nil
}
