package cmd

import (
	"fmt"

	"github.com/Daskott/healthdesk/server/gstorage"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/Daskott/healthdesk/shared"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload the encrypted sqlite database to google cloud storage",
	Long: `Checkpoints the sqlite database and uploads it to google.storage.bucket,
under google.storage.prefix. The file stays encrypted with database.passPhrase.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		config, err := loadServerConfig()
		if err != nil {
			return err
		}

		if config.Database.Driver != shared.SQLITE_DRIVER {
			return formattedError("backup only supports the %v driver", shared.SQLITE_DRIVER)
		}

		rootDir := dataDirectory()
		if err = models.AutoMigrate(config.Database, rootDir); err != nil {
			return err
		}

		err = models.Checkpoint(ctx)
		closeErr := models.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}

		dbFilePath, err := models.DbFilePath(config.Database, rootDir)
		if err != nil {
			return err
		}

		store, err := gstorage.NewGStorage(ctx, config.Google)
		if err != nil {
			return err
		}
		defer store.Close()

		object, err := store.UploadFile(ctx, dbFilePath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %v to gs://%v/%v\n", dbFilePath, config.Google.Storage.Bucket, object)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
