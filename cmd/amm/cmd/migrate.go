package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/storage/postgres"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Apply, revert or inspect the ledger and pool schema of the PostgreSQL
store configured under database.postgres. Connecting already applies pending
migrations; "up" is for doing it ahead of time.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
			if err := m.Up(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the newest migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
			if err := m.Down(ctx, migrateSteps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", migrateSteps)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
			status, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-8s %s\n", s.Version, state, s.Description)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to revert")
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *postgres.Migrator) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if appConfig.Database.Type != "postgres" {
		return fmt.Errorf("migrate needs database.type postgres, got %q", appConfig.Database.Type)
	}

	store, err := postgres.NewStore(ctx, &appConfig.Database.Postgres)
	if err != nil {
		return err
	}
	defer store.Close()

	m := store.Migrator()
	m.SetLogger(logger)
	return fn(ctx, m)
}
