package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
)

// OpenDatabase connects to the configured SQL backend. MySQL is the
// production driver; SQLite serves local runs and tests.
func OpenDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if cfg.LogQueries {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch cfg.Driver {
	case "mysql":
		db, err := gorm.Open(mysql.Open(cfg.DSN()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return db, nil
	case "sqlite":
		return openSQLite(cfg.DSN(), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Single writer; also keeps an in-memory database alive on one connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the menu and order tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.MenuItem{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
