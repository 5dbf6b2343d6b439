package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	// LogLevel of gorm's own SQL logger. Defaults to Warn.
	LogLevel logger.LogLevel
}

func getLogger(level logger.LogLevel) logger.Interface {
	if level == 0 {
		level = logger.Warn
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true, // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true, // Don't include params in the SQL log
			Colorful:                  true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// SetMaxIdleConns sets the maximum number of connections in the idle connection pool.
	sqlDB.SetMaxIdleConns(min(10, maxOpen))

	// SetMaxOpenConns sets the maximum number of open connections to the database.
	sqlDB.SetMaxOpenConns(maxOpen)

	// SetConnMaxLifetime sets the maximum amount of time a connection may be reused.
	sqlDB.SetConnMaxLifetime(time.Hour)

	return nil
}

// IsPostgres reports whether connection names a postgres server rather than
// a sqlite file.
func IsPostgres(connection string) bool {
	return strings.HasPrefix(connection, "postgres://") ||
		strings.HasPrefix(connection, "postgresql://") ||
		strings.Contains(connection, "host=")
}

// NewGormDB opens postgres for a DSN/URL and sqlite for anything else,
// creating the sqlite file's directory when needed. Sqlite gets a single
// connection so writers never contend for the file lock.
func NewGormDB(connection string, opts Options) (*gorm.DB, error) {
	if connection == "" {
		return nil, fmt.Errorf("database connection is not set")
	}

	cfg := &gorm.Config{Logger: getLogger(opts.LogLevel)}

	if IsPostgres(connection) {
		db, err := gorm.Open(postgres.Open(connection), cfg)
		if err != nil {
			return nil, err
		}
		if err := configureConnectionPool(db, 100); err != nil {
			return nil, err
		}
		return db, nil
	}

	dsn := connection
	if connection != ":memory:" {
		if dir := filepath.Dir(connection); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	if err := configureConnectionPool(db, 1); err != nil {
		return nil, err
	}
	return db, nil
}
