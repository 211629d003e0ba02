package cmd

import (
	"github.com/sidhant-sriv/looply-api/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Connect(cfg.Database, debug)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		return db.MakeMigration(gdb, logger)
	},
}
