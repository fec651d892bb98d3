// Package sqldb opens the gorm connection shared by SQL storage and the table messenger.
package sqldb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/webitel/player-sync-service/internal/storage"
)

type Options struct {
	Type       storage.Type
	DSN        string
	SQLitePath string
	PoolSize   int
}

// Open dials the configured dialect and sizes the pool.
func Open(opts Options, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", opts.Type, err)
	}

	if opts.Type == storage.TypeSQLite {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA synchronous=NORMAL;")
		db.Exec("PRAGMA busy_timeout=5000;")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqldb: pool: %w", err)
	}
	pool := max(opts.PoolSize, 1)
	sqlDB.SetMaxOpenConns(pool)
	sqlDB.SetMaxIdleConns(pool)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("SQL_CONNECTION_OPENED", "dialect", db.Dialector.Name(), "pool_size", pool)
	return db, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch opts.Type {
	case storage.TypeSQLite:
		// Fail early if the parent directory is missing.
		if dir := filepath.Dir(opts.SQLitePath); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("sqldb: sqlite directory: %w", err)
			}
		}
		return sqlite.Open(opts.SQLitePath), nil
	case storage.TypeMySQL, storage.TypeMariaDB:
		return mysql.Open(opts.DSN), nil
	case storage.TypePostgreSQL:
		return postgres.Open(opts.DSN), nil
	}
	return nil, fmt.Errorf("sqldb: %s is not a SQL storage type", opts.Type)
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
