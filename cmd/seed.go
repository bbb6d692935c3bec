package cmd

import (
	"fmt"

	"plateau/config"
	"plateau/database"

	"github.com/spf13/cobra"
)

var flagForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample article corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(config.AppConfig)
		if err != nil {
			return err
		}
		var created int
		if flagForce {
			created, err = database.Seed(db)
		} else {
			created, err = database.SeedIfEmpty(db)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d articles\n", created)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&flagForce, "force", false, "seed even if articles already exist")
}
