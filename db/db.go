package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	// Db is the global database connection object
	Db *gorm.DB
	// Path is the path to the SQLite database file
	Path = defaultPath()
)

// resolvePath picks the database location. WANDER_HOME wins so tests and
// portable installs can relocate everything with one variable, then
// XDG_DATA_HOME, then the home directory.
func resolvePath() (string, error) {
	if dir := os.Getenv("WANDER_HOME"); dir != "" {
		return filepath.Join(dir, "wander.db"), nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "wander", "wander.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".wander", "wander.db"), nil
}

func defaultPath() string {
	p, err := resolvePath()
	if err != nil {
		return "wander.db"
	}
	return p
}

// ConfigurePathErr recomputes Path from the environment.
func ConfigurePathErr() error {
	p, err := resolvePath()
	if err != nil {
		return err
	}
	Path = p
	return nil
}

// InitDB initializes the database by creating the necessary directory,
// opening the database connection, migrating tables, and configuring the logger.
func InitDB() error {
	if err := createDBDirectory(); err != nil {
		return err
	}

	if err := openDatabase(); err != nil {
		return err
	}

	if err := migrateTables(); err != nil {
		return err
	}

	configureLogger()

	log.Info().Msg("Database initialized successfully")
	return nil
}

// createDBDirectory creates the directory for the database file if it does not exist.
func createDBDirectory() error {
	dir := filepath.Dir(Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error().Err(err).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

// openDatabase opens a connection to the SQLite database.
func openDatabase() error {
	var err error
	Db, err = gorm.Open(sqlite.Open(Path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return err
	}
	return nil
}

// migrateTables performs automatic migration for the Stay, Token, and Profile tables.
func migrateTables() error {
	if err := Db.AutoMigrate(&Stay{}, &Token{}, &Profile{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return err
	}
	return nil
}

// configureLogger configures the logger for the database based on the global log level.
func configureLogger() {
	if zerolog.GlobalLevel() == zerolog.Disabled {
		Db.Logger = Db.Logger.LogMode(0)
	} else {
		Db.Logger = Db.Logger.LogMode(4)
	}
}

// GetDB returns the global database connection for repository constructors.
func GetDB() *gorm.DB {
	return Db
}

// CloseDB closes the database connection.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	return sqlDB.Close()
}

// Shutdown closes the database and ignores errors. Meant for interrupt handlers.
func Shutdown() {
	_ = CloseDB()
}
