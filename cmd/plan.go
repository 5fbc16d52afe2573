package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/logging"
	"martbuild/internal/pipeline"
	"martbuild/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the build order without executing",
	Long: `Print the dependency-ordered build plan: which models build at each level
and which may run in parallel. Nothing is read or written.`,
	Run: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	runner := pipeline.NewRunner(cfg.Pipeline, nil, nil, logging.Default())
	levels, err := runner.Plan()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	ui.ShowPlan(levels)
}
