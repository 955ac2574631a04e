/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/Daskott/healthdesk/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverConfigFile string
	isDevEnv         bool

	yellow       = color.New(color.FgYellow).SprintFunc()
	red          = color.New(color.FgRed).SprintFunc()
	warningLabel = yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = createRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "healthdesk",
		Short: `healthdesk is a small multi-tenant healthcare records API.

Users register and log in, keep the patients they own, browse a shared
doctor directory and assign doctors to their patients.`,
		Version:      fmt.Sprintf("v%s", version.Version),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&serverConfigFile, "sconfig", "", "config file for the server (default is dev/config/server.yml in dev mode)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}
