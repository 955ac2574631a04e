package cmd

import (
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/healthdesk/dev/config"
	"github.com/Daskott/healthdesk/server"
	"github.com/Daskott/healthdesk/shared"
	"github.com/Daskott/healthdesk/utils"
	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

// loadServerConfig reads --sconfig, or the dev config in dev mode, and validates it.
// Env vars prefixed with HEALTHDESK_ override file values, e.g. HEALTHDESK_LISTENER_PORT.
func loadServerConfig() (*shared.ServerConfig, error) {
	configFile := serverConfigFile
	if configFile == "" && isDevEnv {
		var err error
		configFile, err = devConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	if configFile == "" {
		return nil, formattedError("--sconfig is required when not in dev mode")
	}

	config := viper.New()
	config.SetConfigFile(configFile)
	config.SetEnvPrefix("healthdesk")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	// The credentials path can live in the standard google env var instead of the config file
	config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS")

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	serverConfig := &shared.ServerConfig{}
	if err := config.Unmarshal(serverConfig); err != nil {
		return nil, formattedError("error decoding server config file: %v", err)
	}

	if err := serverConfig.Validate(validator.New()); err != nil {
		return nil, formattedError("invalid server config %v: %v", config.ConfigFileUsed(), err)
	}

	return serverConfig, nil
}

// devConfigFilePath returns dev/config/server.yml, creating it from the bundled
// defaults on first use.
func devConfigFilePath() (string, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(workingDir, "dev", "config")
	if err = utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if !utils.FileExist(configFilePath) {
		if err = os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
			return "", err
		}
	}

	return configFilePath, nil
}

func dataDirectory() string {
	return server.ConfigDirectory(isDevEnv)
}
