/*
Copyright © 2021 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"github.com/Daskott/healthdesk/server"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a healthdesk server",
	Long: `The healthdesk server exposes the patient, doctor and mapping API under /api,
plus /healthz, /metrics and /.well-known/jwks.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadServerConfig()
		if err != nil {
			return err
		}

		server.Start(config, isDevEnv)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
