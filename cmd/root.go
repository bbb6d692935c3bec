package cmd

import (
	"fmt"
	"os"

	"plateau/config"
	"plateau/logging"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "kbserver",
	Short:         "Knowledge base search service",
	Long:          "kbserver serves the knowledge base API: article management, an inverted-index search and engagement analytics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := config.LoadConfig(flagConfig); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logging.Setup(config.AppConfig.Log.Level, config.AppConfig.Log.Pretty)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default: search ./config, ., ../config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reindexCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kbserver %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
