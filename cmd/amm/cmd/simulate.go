package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lugondev/go-amm/internal/amm"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/scenario"
	"github.com/lugondev/go-amm/internal/storage"
	"github.com/lugondev/go-amm/internal/storage/memory"
	"github.com/lugondev/go-amm/internal/storage/mongo"
	"github.com/lugondev/go-amm/internal/storage/postgres"
)

var simulateMetrics bool

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Run a scripted scenario through the engine",
	Long: `Run the pools, balances and steps of a YAML scenario against the configured
store (memory unless database.type says otherwise) and print every receipt
and the final state of each pool.

Example:
  amm simulate examples/scenarios/basic.yaml
  amm simulate examples/scenarios/basic.yaml --metrics`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVar(&simulateMetrics, "metrics", false, "print Prometheus metrics after the run")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	program, err := programID()
	if err != nil {
		return err
	}

	cm, err := storage.NewConnectionManager(&appConfig.Database)
	if err != nil {
		return err
	}
	store, err := cm.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	fund, err := funder(store)
	if err != nil {
		return err
	}

	clock := time.Now
	if s.Clock != 0 {
		at := time.Unix(s.Clock, 0)
		clock = func() time.Time { return at }
	}

	registry := prometheus.NewRegistry()
	builder := amm.NewEngineBuilder().
		Store(store).
		ProgramID(program).
		Logger(logger).
		Clock(clock).
		Metrics(metrics.NewLogMetrics(logger))
	if simulateMetrics || appConfig.Metrics.Enabled {
		builder.Metrics(metrics.NewPrometheusMetrics(registry, appConfig.Metrics.Namespace))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}

	if err := engine.Metrics.Initialize(ctx); err != nil {
		return err
	}
	defer func() { _ = engine.Metrics.Shutdown(ctx) }()

	runner := scenario.NewRunner(engine, fund)
	runner.SetLogger(logger)
	result, runErr := runner.Run(ctx, s)
	if err := engine.Metrics.Flush(ctx); err != nil {
		logger.Warn("failed to flush metrics", zap.Error(err))
	}

	w := cmd.OutOrStdout()
	printSteps(w, result)
	if runErr != nil {
		return runErr
	}
	printPools(w, result)

	if simulateMetrics {
		return printMetrics(w, registry)
	}
	return nil
}

// funder returns the out-of-band funding hook of the stores that have one.
func funder(store storage.Store) (scenario.FundFunc, error) {
	switch s := store.(type) {
	case *memory.Store:
		return func(_ context.Context, asset, owner solana.PublicKey, amount uint64) error {
			return s.Fund(asset, owner, amount)
		}, nil
	case *postgres.Store:
		return s.Fund, nil
	case *mongo.Store:
		return s.Fund, nil
	default:
		return nil, fmt.Errorf("store %T cannot fund scenario balances", store)
	}
}

func printSteps(w io.Writer, result *scenario.Result) {
	for _, st := range result.Steps {
		if st.Err != nil {
			fmt.Fprintf(w, "%s %2d %-13s %s\n", color.YellowString("rejected"), st.Index, st.Step.Op, ammerrors.Code(st.Err))
			continue
		}
		r := st.Receipt
		fmt.Fprintf(w, "%s %2d %-13s %s", color.GreenString("ok      "), st.Index, st.Step.Op, st.Step.User)
		switch r.Op {
		case amm.OpDeposit, amm.OpWithdraw:
			fmt.Fprintf(w, " shares=%d x=%d y=%d", r.Shares, r.AmountX, r.AmountY)
		case amm.OpSwap:
			fmt.Fprintf(w, " in=%d out=%d", r.AmountIn, r.AmountOut)
		}
		if r.Reserves != nil {
			fmt.Fprintf(w, " [%s]", r.Reserves)
		}
		fmt.Fprintln(w)
	}
}

func printPools(w io.Writer, result *scenario.Result) {
	fmt.Fprintln(w)
	for _, p := range result.Pools {
		fmt.Fprintf(w, "Pool %s\n", color.CyanString(p.Name))
		fmt.Fprintf(w, "  Address:  %s\n", p.Config.Address)
		fmt.Fprintf(w, "  LP mint:  %s\n", p.Config.LPMint)
		fmt.Fprintf(w, "  Fee:      %d bps\n", p.Config.FeeBps)
		fmt.Fprintf(w, "  State:    %s\n", p.Config.State())
		fmt.Fprintf(w, "  Reserves: %s\n", p.Reserves)
	}
}

func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	fmt.Fprintln(w)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%g\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
