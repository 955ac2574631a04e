package shared

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"
)

const (
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "postgres"
)

type ServerConfig struct {
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Listener ListenerConfig `mapstructure:"listener" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	PassPhrase string `mapstructure:"passPhrase"`
	Dir        string `mapstructure:"dir"`
	DSN        string `mapstructure:"dsn"`
}

type AuthConfig struct {
	PrivateKeyPem   string        `mapstructure:"privateKeyPem"`
	Issuer          string        `mapstructure:"issuer" validate:"required"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL" validate:"required,gt=0"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL" validate:"required,gtfield=AccessTokenTTL"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

type LoggingConfig struct {
	Level string        `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File  LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// Validate checks struct tags, then the rules that depend on other fields' values.
func (config *ServerConfig) Validate(validate *validator.Validate) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	switch config.Database.Driver {
	case SQLITE_DRIVER:
		if config.Database.PassPhrase == "" {
			return fmt.Errorf("database.passPhrase is required for the %v driver", SQLITE_DRIVER)
		}
	case POSTGRES_DRIVER:
		if config.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %v driver", POSTGRES_DRIVER)
		}
	}

	if config.Logging.File.Enabled && config.Logging.File.Path == "" {
		return fmt.Errorf("logging.file.path is required when file logging is enabled")
	}

	return nil
}
