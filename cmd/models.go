package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/gitrepo"
	"martbuild/internal/ui"
)

var modelsLogLimit int

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the models repository checkout",
}

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or fast-forward the models repository",
	Run:   runModelsSync,
}

var modelsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent commits of the models repository",
	Run:   runModelsLog,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsLogCmd)

	modelsLogCmd.Flags().IntVarP(&modelsLogLimit, "limit", "n", 10, "Number of commits to show")
}

func runModelsSync(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	spinner := ui.NewSpinner("Syncing models repository...")
	spinner.Start()

	result, err := gitrepo.NewService(cfg.ModelsRepo).Sync(ctx)
	if err != nil {
		spinner.Stop(false, "Sync failed")
		ui.ShowError(err)
		os.Exit(1)
	}

	if result.Cloned {
		spinner.Stop(true, "Repository cloned")
	} else {
		spinner.Stop(true, "Repository up to date")
	}
	ui.ShowInfo(fmt.Sprintf("%s @ %s", result.Branch, result.Head[:8]))
}

func runModelsLog(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	commits, err := gitrepo.NewService(cfg.ModelsRepo).RecentCommits(modelsLogLimit)
	if err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	for _, c := range commits {
		fmt.Printf("%s  %s  %s  %s\n",
			ui.ColorBold(c.Hash[:8]),
			c.Date.Format("2006-01-02"),
			ui.ColorDim(c.Author),
			c.Message,
		)
	}
}
