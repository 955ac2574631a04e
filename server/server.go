package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/healthdesk/server/auth"
	"github.com/Daskott/healthdesk/server/logger"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/Daskott/healthdesk/shared"
)

var (
	logg           = logger.NewLogger()
	tokenService   *auth.TokenService
	passwordPolicy = models.PasswordPolicy(models.DefaultPasswordPolicy)
)

// Start opens the store, serves the API on config.Listener.Port and blocks
// until SIGINT or SIGTERM.
func Start(config *shared.ServerConfig, devMode bool) {
	logg = logger.New(config.Logging, devMode)
	configDir := ConfigDirectory(devMode)

	keyPair, err := loadKeyPair(config.Auth, devMode)
	fatalOnError(err)

	tokenService = auth.NewTokenService(
		keyPair,
		config.Auth.Issuer,
		config.Auth.AccessTokenTTL,
		config.Auth.RefreshTokenTTL,
	)

	err = models.AutoMigrate(config.Database, configDir)
	fatalOnError(err)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Listener.Port),
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go serve(server)

	// Wait for an interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cleanup(server)
}
