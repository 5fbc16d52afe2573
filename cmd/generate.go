package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/generate"
	"martbuild/internal/logging"
	"martbuild/internal/ui"
)

var (
	generateSeed     int64
	generateProducts int
	generateStores   int
	generateDays     int
	generateOutDir   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic landing data",
	Long: `Generate a deterministic synthetic supply-chain dataset: product, store and
vendor master data, daily sales with weekend and holiday lift, and an
end-of-window inventory snapshot. The same seed always produces the same
files.`,
	Run: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Override the configured random seed")
	generateCmd.Flags().IntVar(&generateProducts, "products", 0, "Number of products to generate")
	generateCmd.Flags().IntVar(&generateStores, "stores", 0, "Number of stores to generate")
	generateCmd.Flags().IntVar(&generateDays, "days", 0, "Length of the sales window in days")
	generateCmd.Flags().StringVarP(&generateOutDir, "output-dir", "o", "", "Output directory for CSV files")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	gen := cfg.Generator
	if cmd.Flags().Changed("seed") {
		gen.Seed = generateSeed
	}
	if generateProducts > 0 {
		gen.Products = generateProducts
	}
	if generateStores > 0 {
		gen.Stores = generateStores
	}
	if generateDays > 0 {
		gen.Days = generateDays
	}
	if generateOutDir != "" {
		gen.OutputDir = generateOutDir
	}

	spinner := ui.NewSpinner("Generating synthetic data...")
	spinner.Start()

	summary, err := generate.NewGenerator(gen, logging.Default()).Run()
	if err != nil {
		spinner.Stop(false, "Generation failed")
		ui.ShowError(err)
		os.Exit(1)
	}

	spinner.Stop(true, "Generation complete")
	ui.ShowSuccess(fmt.Sprintf("%d products, %d stores, %d vendors, %d sales, %d inventory rows",
		summary.Products, summary.Stores, summary.Vendors, summary.Sales, summary.Inventory))
	ui.ShowInfo(fmt.Sprintf("Total revenue $%.2f, total profit $%.2f", summary.TotalRevenue, summary.TotalProfit))
	ui.ShowInfo(fmt.Sprintf("Files saved to %s", gen.OutputDir))
}
