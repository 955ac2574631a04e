package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Daskott/healthdesk/server/auth"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/Daskott/healthdesk/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testConfigYML = `
database:
  driver: %v
  passPhrase: %v
  dir: %v
  dsn: %v
auth:
  issuer: "healthdesk-test"
  accessTokenTTL: %v
  refreshTokenTTL: 1h
listener:
  port: 3000
`

func writeConfig(t *testing.T, driver, passPhrase, dsn, accessTTL string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	configFile := filepath.Join(dir, "server.yml")
	content := fmt.Sprintf(testConfigYML, driver, passPhrase, dir, dsn, accessTTL)
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))

	return configFile, dir
}

// useConfig points --sconfig at configFile for the duration of the test.
func useConfig(t *testing.T, configFile string) {
	savedConfigFile, savedDevEnv := serverConfigFile, isDevEnv
	t.Cleanup(func() {
		serverConfigFile, isDevEnv = savedConfigFile, savedDevEnv
	})

	serverConfigFile, isDevEnv = configFile, false
}

func executeCommand(args ...string) (string, error) {
	buff := new(bytes.Buffer)
	rootCmd.SetOut(buff)
	rootCmd.SetErr(buff)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buff.String(), err
}

func TestLoadServerConfig(t *testing.T) {
	t.Run("reads and validates the config file", func(t *testing.T) {
		configFile, dir := writeConfig(t, "sqlite", "secret", `""`, "5m")
		useConfig(t, configFile)

		config, err := loadServerConfig()
		require.NoError(t, err)

		assert.Equal(t, shared.SQLITE_DRIVER, config.Database.Driver)
		assert.Equal(t, dir, config.Database.Dir)
		assert.Equal(t, 5*time.Minute, config.Auth.AccessTokenTTL)
		assert.Equal(t, time.Hour, config.Auth.RefreshTokenTTL)
		assert.Equal(t, 3000, config.Listener.Port)
	})

	t.Run("env vars override the file", func(t *testing.T) {
		configFile, _ := writeConfig(t, "sqlite", "secret", `""`, "5m")
		useConfig(t, configFile)
		t.Setenv("HEALTHDESK_LISTENER_PORT", "4000")

		config, err := loadServerConfig()
		require.NoError(t, err)
		assert.Equal(t, 4000, config.Listener.Port)
	})

	invalid := []struct {
		description string
		driver      string
		passPhrase  string
		accessTTL   string
	}{
		{"unknown driver", "mysql", "secret", "5m"},
		{"sqlite without a passphrase", "sqlite", `""`, "5m"},
		{"postgres without a dsn", "postgres", "secret", "5m"},
		{"access token outlives refresh token", "sqlite", "secret", "2h"},
	}

	for _, tt := range invalid {
		t.Run(tt.description, func(t *testing.T) {
			configFile, _ := writeConfig(t, tt.driver, tt.passPhrase, `""`, tt.accessTTL)
			useConfig(t, configFile)

			_, err := loadServerConfig()
			assert.Error(t, err)
		})
	}

	t.Run("config file is required outside dev mode", func(t *testing.T) {
		useConfig(t, "")

		_, err := loadServerConfig()
		assert.Error(t, err)
	})
}

func TestUserCmd(t *testing.T) {
	auth.HashCost = bcrypt.MinCost
	t.Setenv("HOME", t.TempDir())

	configFile, _ := writeConfig(t, "sqlite", "secret", `""`, "5m")
	useConfig(t, configFile)

	config, err := loadServerConfig()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, models.AutoMigrate(config.Database, dataDirectory()))
	_, err = models.RegisterUser(ctx, models.RegisterInput{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, models.Close())

	isActive := func() bool {
		require.NoError(t, models.AutoMigrate(config.Database, dataDirectory()))
		defer models.Close()

		user, err := models.FindUserBy(ctx, "email", "ada@example.com")
		require.NoError(t, err)
		return user.IsActive
	}

	out, err := executeCommand("user", "deactivate", "ada@example.com", "--sconfig", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "User ada@example.com deactivated")
	assert.False(t, isActive())

	out, err = executeCommand("user", "activate", "ada@example.com", "--sconfig", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "User ada@example.com activated")
	assert.True(t, isActive())

	_, err = executeCommand("user", "activate", "nobody@example.com", "--sconfig", configFile)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBackupAndRestoreRequireSqlite(t *testing.T) {
	configFile, _ := writeConfig(t, "postgres", "secret", `"host=localhost"`, "5m")
	useConfig(t, configFile)

	for _, command := range []string{"backup", "restore"} {
		t.Run(command, func(t *testing.T) {
			_, err := executeCommand(command, "--sconfig", configFile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "only supports the sqlite driver")
		})
	}
}
