package cmd

import (
	"fmt"

	"github.com/Daskott/healthdesk/server/models"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var activateUserCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Allow the user with <email> to log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], true)
	},
}

var deactivateUserCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Stop the user with <email> from logging in or using issued tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(activateUserCmd, deactivateUserCmd)
}

func setUserActive(cmd *cobra.Command, email string, active bool) error {
	config, err := loadServerConfig()
	if err != nil {
		return err
	}

	if err = models.AutoMigrate(config.Database, dataDirectory()); err != nil {
		return err
	}
	defer models.Close()

	if err = models.SetUserActive(cmd.Context(), email, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %v %v\n", email, state)
	return nil
}
