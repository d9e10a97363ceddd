package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/amm"
	"github.com/lugondev/go-amm/internal/decoder/anchor"
	"github.com/lugondev/go-amm/internal/decoder/spl_token"
	ammsolana "github.com/lugondev/go-amm/internal/solana"
	"github.com/lugondev/go-amm/internal/transaction"
)

var (
	planPool      string
	planUser      string
	planKeypair   string
	planAmount    uint64
	planX         uint64
	planY         uint64
	planIsX       bool
	planExpiresIn time.Duration
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a pool operation against a live cluster",
	Long: `Read the pool config, vault balances and LP supply over RPC, run the
operation through the engine and print the token transfers it implies along
with the program instruction to send. Nothing is submitted.

With --keypair the instruction is wrapped in a transaction signed by that
keypair against the latest blockhash and printed as base64.

Example:
  amm plan swap --pool <CONFIG> --user <WALLET> --amount 1000 --limit 990
  amm plan deposit --pool <CONFIG> --keypair ~/.config/solana/id.json --amount 100 --x 100 --y 100`,
}

func newPlanOp(op amm.Op, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   string(op),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, op)
		},
	}
	f := c.Flags()
	f.Uint64Var(&planAmount, "amount", 0, "LP shares, or the swap input")
	switch op {
	case amm.OpSwap:
		f.Uint64Var(&planX, "limit", 0, "minimum output")
		f.BoolVar(&planIsX, "is-x", true, "sell X for Y (false sells Y for X)")
	case amm.OpDeposit:
		f.Uint64Var(&planX, "x", 0, "maximum X to deposit")
		f.Uint64Var(&planY, "y", 0, "maximum Y to deposit")
	case amm.OpWithdraw:
		f.Uint64Var(&planX, "x", 0, "minimum X to receive")
		f.Uint64Var(&planY, "y", 0, "minimum Y to receive")
	}
	return c
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(
		newPlanOp(amm.OpDeposit, "Plan a deposit"),
		newPlanOp(amm.OpWithdraw, "Plan a withdrawal"),
		newPlanOp(amm.OpSwap, "Plan a swap"),
	)

	flags := planCmd.PersistentFlags()
	flags.StringVar(&planPool, "pool", "", "pool config address (required)")
	flags.StringVar(&planUser, "user", "", "user wallet address")
	flags.StringVar(&planKeypair, "keypair", "", "keypair file of the user; signs the planned transaction")
	flags.DurationVar(&planExpiresIn, "expires-in", time.Minute, "request deadline relative to now")
	cobra.CheckErr(planCmd.MarkPersistentFlagRequired("pool"))
}

func runPlan(cmd *cobra.Command, op amm.Op) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	program, err := programID()
	if err != nil {
		return err
	}
	poolAddr, err := parseKey("pool", planPool)
	if err != nil {
		return err
	}

	var wallet *ammsolana.Wallet
	var user solana.PublicKey
	switch {
	case planKeypair != "":
		if wallet, err = ammsolana.WalletFromFile(planKeypair); err != nil {
			return err
		}
		user = wallet.PublicKey()
	case planUser != "":
		if user, err = parseKey("user", planUser); err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --user or --keypair is required")
	}

	client := ammsolana.NewClient(appConfig.Solana)
	planner := ammsolana.NewPlanner(client, program)
	engine, err := amm.NewEngineBuilder().
		Store(planner).
		ProgramID(program).
		Logger(logger).
		Build()
	if err != nil {
		return err
	}

	expiration := time.Now().Add(planExpiresIn).Unix()
	var ix anchor.Instruction
	var receipt *amm.Receipt
	switch op {
	case amm.OpDeposit:
		args := &anchor.DepositArgs{Amount: planAmount, MaxX: planX, MaxY: planY, Expiration: expiration}
		ix = args
		receipt, err = engine.Deposit(ctx, args.Request(poolAddr, user))
	case amm.OpWithdraw:
		args := &anchor.WithdrawArgs{Amount: planAmount, MinX: planX, MinY: planY, Expiration: expiration}
		ix = args
		receipt, err = engine.Withdraw(ctx, args.Request(poolAddr, user))
	case amm.OpSwap:
		args := &anchor.SwapArgs{IsX: planIsX, Amount: planAmount, Min: planX, Expiration: expiration}
		ix = args
		receipt, err = engine.Swap(ctx, args.Request(poolAddr, user))
	}
	if err != nil {
		return err
	}
	// Read before any further Atomic call replaces the plan.
	planned := planner.Instructions()

	cfg, err := engine.Pool(ctx, poolAddr)
	if err != nil {
		return err
	}
	accounts, err := anchor.NewPoolAccounts(program, user, cfg)
	if err != nil {
		return err
	}
	programIx, err := anchor.Build(program, accounts, ix)
	if err != nil {
		return err
	}

	events, err := spl_token.DecodeAll(planned)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printPlan(w, receipt, events, programIx)
	logger.Debug("plan built", zap.Stringer("op", op), zap.Int("transfers", len(events)))

	if wallet == nil {
		return nil
	}
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return err
	}
	tx, err := solana.NewTransaction([]solana.Instruction{programIx}, blockhash, solana.TransactionPayer(user))
	if err != nil {
		return fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := wallet.SignTransaction(tx); err != nil {
		return err
	}
	encoded, err := transaction.Encode(tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nSigned transaction:\n%s\n", encoded)
	return nil
}

func printPlan(w io.Writer, receipt *amm.Receipt, events []*spl_token.Event, programIx solana.Instruction) {
	fmt.Fprintf(w, "Operation: %s on %s\n", receipt.Op, receipt.Pool)
	if receipt.Reserves != nil {
		fmt.Fprintf(w, "Reserves after: %s\n", receipt.Reserves)
	}

	fmt.Fprintln(w, "\nToken movements:")
	for _, e := range events {
		fmt.Fprintf(w, "  %s\n", e)
	}

	data, _ := programIx.Data()
	fmt.Fprintf(w, "\nProgram instruction (%d accounts):\n  %x\n", len(programIx.Accounts()), data)
}
