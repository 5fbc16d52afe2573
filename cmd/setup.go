package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"martbuild/internal/config"
	"martbuild/internal/secrets"
	"martbuild/internal/ui"
	"martbuild/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up martbuild...")
	fmt.Println()

	if config.Exists() {
		var overwrite bool
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		survey.AskOne(prompt, &overwrite)
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Snowflake Configuration")
	fmt.Println("-----------------------")

	snowflakeQs := []*survey.Question{
		{
			Name:     "account",
			Prompt:   &survey.Input{Message: "Snowflake Account (e.g., xy12345.us-east-1):"},
			Validate: survey.Required,
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:"},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password:"},
			Validate: survey.Required,
		},
		{
			Name:   "role",
			Prompt: &survey.Input{Message: "Role:", Default: "SYSADMIN"},
		},
		{
			Name:   "warehouse",
			Prompt: &survey.Input{Message: "Warehouse:", Default: "COMPUTE_WH"},
		},
		{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database:", Default: "SUPPLY_CHAIN"},
			Validate: survey.Required,
		},
	}

	answers := struct {
		Account   string
		Username  string
		Password  string
		Role      string
		Warehouse string
		Database  string
	}{}

	if err := survey.Ask(snowflakeQs, &answers); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	cfg.Snowflake = models.Snowflake{
		Account:   answers.Account,
		Username:  answers.Username,
		Password:  answers.Password,
		Role:      answers.Role,
		Warehouse: answers.Warehouse,
		Database:  answers.Database,
		Timeout:   "5m",
	}

	if secrets.IsAvailable() {
		var useKeychain bool
		prompt := &survey.Confirm{
			Message: "Store the password in the OS keychain instead of the config file?",
			Default: true,
		}
		survey.AskOne(prompt, &useKeychain)

		if useKeychain {
			if err := secrets.StorePassword(cfg.Snowflake.Account, cfg.Snowflake.Password); err != nil {
				ui.ShowWarning(fmt.Sprintf("Keychain unavailable, falling back to encrypted config: %v", err))
			} else {
				cfg.Snowflake.Password = ""
				cfg.Snowflake.UseKeychain = true
			}
		}
	}

	fmt.Println()
	fmt.Println("Models Repository (optional)")
	fmt.Println("----------------------------")

	var gitURL string
	survey.AskOne(&survey.Input{
		Message: "Git URL of the models repository (leave empty to skip):",
	}, &gitURL)
	if gitURL != "" {
		cfg.ModelsRepo.GitURL = gitURL
		survey.AskOne(&survey.Input{Message: "Branch:", Default: "main"}, &cfg.ModelsRepo.Branch)
		survey.AskOne(&survey.Input{Message: "Local checkout path:", Default: "models"}, &cfg.ModelsRepo.Path)
	}

	config.ApplyDefaults(cfg)

	if cfg.Snowflake.Password != "" {
		if err := config.EncryptConfigPasswords(cfg); err != nil {
			ui.ShowWarning(fmt.Sprintf("Could not encrypt password: %v", err))
		}
	}

	if err := config.Save(cfg); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}

	fmt.Println()
	ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", config.GetConfigFile()))
	ui.ShowInfo("Run 'martbuild generate' to create synthetic landing data")
	ui.ShowInfo("Run 'martbuild load' to load it into the warehouse")
	ui.ShowInfo("Run 'martbuild build' to build the marts")
}
