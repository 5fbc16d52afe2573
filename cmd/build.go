package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/landing"
	"martbuild/internal/logging"
	"martbuild/internal/pipeline"
	"martbuild/internal/secrets"
	"martbuild/internal/ui"
	"martbuild/internal/warehouse"
	"martbuild/pkg/models"
)

var (
	buildDataDir string
	buildTarget  string
	buildOutDir  string
	buildWorkers int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build all marts full-refresh",
	Long: `Rebuild every staging view, dimension and fact table from the landing data.

The build is all-or-nothing: output is staged next to the live tables and
swapped into place only when every model has built, so consumers never see a
partially refreshed schema. Landing data is read from the warehouse LANDING
schema by default, or from local CSV files with --data-dir.`,
	Run: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildDataDir, "data-dir", "", "Read landing data from CSV files in this directory instead of the warehouse")
	buildCmd.Flags().StringVarP(&buildTarget, "target", "t", "snowflake", "Where to materialize: snowflake or csv")
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "data/marts", "Output directory for the csv target")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "Parallel model builds per level (0 = NumCPU)")
}

func runBuild(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
	if buildWorkers > 0 {
		cfg.Pipeline.Workers = buildWorkers
	}

	source, target, cleanup, err := buildEndpoints(cfg)
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
	defer cleanup()

	ui.ShowHeader("martbuild")
	spinner := ui.NewSpinner("Building marts...")
	spinner.Start()

	runner := pipeline.NewRunner(cfg.Pipeline, source, target, logging.Default())
	result, err := runner.Run(ctx)

	if err != nil {
		spinner.Stop(false, "Build failed")
		ui.ShowRunSummary(result)
		ui.ShowError(err)
		os.Exit(1)
	}

	spinner.Stop(true, "Build complete")
	ui.ShowRunSummary(result)
}

// buildEndpoints wires the landing source and materialization target from the
// flags: CSV both sides, warehouse both sides, or CSV in and warehouse out
func buildEndpoints(cfg *models.Config) (landing.Source, pipeline.Target, func(), error) {
	cleanup := func() {}

	var source landing.Source
	var service *warehouse.Service

	needWarehouse := buildDataDir == "" || buildTarget == "snowflake"
	if needWarehouse {
		if err := resolvePassword(cfg); err != nil {
			return nil, nil, cleanup, err
		}
		service = warehouse.NewService(cfg.Snowflake)
		if err := service.Connect(); err != nil {
			return nil, nil, cleanup, err
		}
		cleanup = func() { service.Close() }
	}

	if buildDataDir != "" {
		source = landing.NewCSVSource(buildDataDir)
	} else {
		source = service
	}

	var target pipeline.Target
	switch buildTarget {
	case "snowflake":
		target = service
	case "csv":
		target = warehouse.NewCSVTarget(buildOutDir)
	default:
		return nil, nil, cleanup, fmt.Errorf("unknown target %q (use snowflake or csv)", buildTarget)
	}

	return source, target, cleanup, nil
}

// resolvePassword fills in the Snowflake password from the OS keychain or
// decrypts it from the config file
func resolvePassword(cfg *models.Config) error {
	if cfg.Snowflake.UseKeychain && secrets.IsAvailable() {
		password, err := secrets.LoadPassword(cfg.Snowflake.Account)
		if err == nil && password != "" {
			cfg.Snowflake.Password = password
			return nil
		}
	}
	return config.DecryptConfigPasswords(cfg)
}
