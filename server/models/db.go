package models

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/healthdesk/server/auth"
	"github.com/Daskott/healthdesk/server/logger"
	"github.com/Daskott/healthdesk/shared"
	"github.com/Daskott/healthdesk/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "healthdesk.db"

var logg = logger.NewLogger()
var db *gorm.DB

// AutoMigrate opens the configured database and migrates the schema
func AutoMigrate(config shared.DatabaseConfig, rootDir string) error {
	err := openDB(config, rootDir)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(&User{}, &Doctor{}, &Patient{}, &PatientDoctorMapping{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	return nil
}

// InitializeTestDb opens a fresh encrypted sqlite database in a temp directory
// and lowers the bcrypt cost so tests stay fast.
func InitializeTestDb() {
	auth.HashCost = bcrypt.MinCost

	rootDir, err := os.MkdirTemp("", "healthdesk-test-")
	if err != nil {
		log.Panic(err)
	}

	err = AutoMigrate(shared.DatabaseConfig{
		Driver:     shared.SQLITE_DRIVER,
		PassPhrase: "test-passphrase",
		Dir:        rootDir,
	}, rootDir)
	if err != nil {
		log.Panic(err)
	}
}

func Ping(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("database is not open")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Checkpoint folds the sqlite write-ahead log into the main database file,
// so the file alone is a complete copy. It is a no-op for postgres.
func Checkpoint(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("database is not open")
	}

	if db.Dialector.Name() == "postgres" {
		return nil
	}

	return db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
}

func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func openDB(config shared.DatabaseConfig, rootDir string) error {
	var err error
	var dialector gorm.Dialector

	switch config.Driver {
	case shared.POSTGRES_DRIVER:
		dialector = postgres.Open(config.DSN)
	default:
		var dbDSNVal string
		dbDSNVal, err = dbDSN(config.PassPhrase, dbRootDir(config, rootDir))
		if err != nil {
			return fmt.Errorf("failed to set sqlite DSN: %v", err)
		}
		dialector = sqliteEncrypt.Open(dbDSNVal)
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	if config.Driver != shared.POSTGRES_DRIVER {
		// sqlite pragmas are per connection, so keep a single one
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)

		if err = db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
	}

	return nil
}

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL&_foreign_keys=1",
		dbName,
		url.QueryEscape(passPhrase),
	), nil
}

func dbRootDir(config shared.DatabaseConfig, rootDir string) string {
	if config.Dir != "" {
		return config.Dir
	}
	return rootDir
}

// DbFilePath is the location of the sqlite database file for config.
func DbFilePath(config shared.DatabaseConfig, rootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir(config, rootDir))
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
