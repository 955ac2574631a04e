package cmd

import (
	"fmt"

	"github.com/Daskott/healthdesk/server/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadServerConfig()
		if err != nil {
			return err
		}

		if err = models.AutoMigrate(config.Database, dataDirectory()); err != nil {
			return err
		}
		defer models.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Migrated %v database\n", config.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
