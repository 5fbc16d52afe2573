package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/landing"
	"martbuild/internal/ui"
	"martbuild/internal/warehouse"
)

var loadDataDir string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load landing CSV files into the warehouse",
	Long: `Create the LANDING schema and its raw tables if needed, then truncate and
reload them from the CSV files the generator and the extractor produce.`,
	Run: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadDataDir, "data-dir", "data/raw", "Directory holding the landing CSV files")
}

func runLoad(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
	if err := resolvePassword(cfg); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	service := warehouse.NewService(cfg.Snowflake)
	if err := service.Connect(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
	defer service.Close()

	spinner := ui.NewSpinner("Loading landing data...")
	spinner.Start()

	counts, err := service.LoadLanding(ctx, landing.NewCSVSource(loadDataDir))
	if err != nil {
		spinner.Stop(false, "Load failed")
		ui.ShowError(err)
		os.Exit(1)
	}

	spinner.Stop(true, "Load complete")
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		ui.ShowInfo(fmt.Sprintf("%s: %d rows", table, counts[table]))
	}
}
