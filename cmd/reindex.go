package cmd

import (
	"fmt"

	"plateau/cache"
	"plateau/config"
	"plateau/utils"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Load every article, rebuild the search index and print its statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(config.AppConfig)
		if err != nil {
			return err
		}
		kb, err := newKnowledgeBase(db, cache.NewNopSearchCache(), config.AppConfig)
		if err != nil {
			return err
		}
		stats := kb.RebuildIndex()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "documents:  %d\n", stats.Documents)
		fmt.Fprintf(out, "tokens:     %d\n", stats.Tokens)
		fmt.Fprintf(out, "rebuilt at: %s\n", utils.FormatTime(stats.LastRebuildAt))
		return nil
	},
}
