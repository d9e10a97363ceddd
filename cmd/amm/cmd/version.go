package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/config"
)

// Set through -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Long: `Print the amm release, the commit and toolchain it was built from, and
the program id pool addresses are derived under unless amm.program_id says
otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		fmt.Fprintf(out, "amm %s\n", Version)
		fmt.Fprintf(out, "  Commit:  %s (%s)\n", GitCommit, BuildDate)
		fmt.Fprintf(out, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  Program: %s\n", config.DefaultProgramID)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the release")
}
