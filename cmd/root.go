package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"martbuild/internal/logging"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "martbuild",
		Short: "Build star-schema marts in Snowflake",
		Long: "martbuild - A CLI tool for building dimensional marts from raw supply-chain\n" +
			"and vulnerability data: staging, surrogate-keyed dimensions and fact tables,\n" +
			"rebuilt full-refresh with swap-on-completion.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.InfoLevel
			if verbose {
				level = logging.DebugLevel
			}
			logging.SetDefault(logging.NewLogger(logging.Config{
				Level:   level,
				Version: Version,
			}))
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.martbuild")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is okay for now
	}
}
