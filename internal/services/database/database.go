// Package database opens the gorm connection backing the persistent audit
// sink. The driver is chosen by config; sqlite is the zero-dependency default
// for single-node deployments.
package database

import (
	"fmt"
	"strings"

	"github.com/helix-ml/tier-router/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the gorm handle with the driver it was opened with.
type DB struct {
	*gorm.DB
	driverName string
}

// Open connects using the configured driver and DSN.
func Open(cfg models.DatabaseConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, models.NewConfigurationError("database", "dsn not configured")
	}

	var dialector gorm.Dialector
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "postgresql":
		driver = "postgres"
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	return &DB{DB: gormDB, driverName: driver}, nil
}

// DriverName returns the driver the connection was opened with.
func (db *DB) DriverName() string {
	return db.driverName
}

// Ping verifies the connection is alive.
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
