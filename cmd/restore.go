package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/Daskott/healthdesk/server/gstorage"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/Daskott/healthdesk/shared"
	"github.com/Daskott/healthdesk/utils"
	"github.com/spf13/cobra"
)

var forceRestore bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local sqlite database with the copy in google cloud storage",
	Long: `Downloads the database uploaded by 'healthdesk backup'. Stop the server first.
An existing local database is only replaced when --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		config, err := loadServerConfig()
		if err != nil {
			return err
		}

		if config.Database.Driver != shared.SQLITE_DRIVER {
			return formattedError("restore only supports the %v driver", shared.SQLITE_DRIVER)
		}

		dbFilePath, err := models.DbFilePath(config.Database, dataDirectory())
		if err != nil {
			return err
		}

		if utils.FileExist(dbFilePath) {
			if !forceRestore {
				return formattedError("%v already exists, use --force to replace it", dbFilePath)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), warningLabel, "replacing", dbFilePath)
		}

		store, err := gstorage.NewGStorage(ctx, config.Google)
		if err != nil {
			return err
		}
		defer store.Close()

		object, err := store.DownloadFile(ctx, dbFilePath)
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return formattedError("no backup found at gs://%v/%v", config.Google.Storage.Bucket, object)
		}
		if err != nil {
			return err
		}

		// A write-ahead log left from the replaced database must not be replayed onto the restored one
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(dbFilePath + suffix); err != nil && !os.IsNotExist(err) {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Restored gs://%v/%v to %v\n", config.Google.Storage.Bucket, object, dbFilePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&forceRestore, "force", false, "replace an existing local database")
}
