package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// Database holds the control-plane database connection. The same database
// hosts the tenants directory, the storefront slug directory, and the shared
// pool that free-plan tenants store their rows in.
type Database struct {
	DB *gorm.DB
}

// NewDatabase creates a new control-plane database connection
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return newDatabaseWithLogLevel(cfg, logger.Silent)
}

// NewDatabaseWithLogger creates a new database connection with custom logger settings
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*Database, error) {
	return newDatabaseWithLogLevel(cfg, logLevel)
}

func newDatabaseWithLogLevel(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*Database, error) {
	db, err := openPool(cfg.DSN(), logLevel, poolLimits{
		maxOpen:     cfg.MaxOpenConns,
		maxIdle:     cfg.MaxIdleConns,
		maxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Minute,
		maxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}

// SharedPoolHandle returns a second GORM handle over the same connection
// pool with the tenant filter callbacks registered. Shared-placement routing
// goes through it, so a statement that reaches the pool without the scoped
// handle still gets the tenant condition. The control-plane handle stays
// unfiltered; the tenants table has no tenant_id column.
func (d *Database) SharedPoolHandle() (*gorm.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 d.DB.Logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open shared pool handle: %w", err)
	}
	tenantdb.EnableAutoTenantFilter(db, true)
	return db, nil
}

// NewTenantDialFunc returns the DialFunc the connection cache and the mover
// use to open pools to dedicated tenant databases. Dedicated databases live
// on the same server as the control plane; each pool is tuned down because
// one tenant drives far less traffic than the shared pool.
func NewTenantDialFunc(cfg *config.Config) tenantdb.DialFunc {
	return func(dbName string) (*gorm.DB, error) {
		return openPool(cfg.Database.DSNForDatabase(dbName), logger.Silent, poolLimits{
			maxOpen:     cfg.TenantDB.MaxOpenConns,
			maxIdle:     cfg.TenantDB.MaxIdleConns,
			maxLifetime: time.Duration(cfg.TenantDB.ConnMaxLifetime) * time.Minute,
			maxIdleTime: time.Duration(cfg.TenantDB.ConnMaxIdleTime) * time.Minute,
		})
	}
}

type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

func openPool(dsn string, logLevel logger.LogLevel, limits poolLimits) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(limits.maxOpen)
	sqlDB.SetMaxIdleConns(limits.maxIdle)
	sqlDB.SetConnMaxLifetime(limits.maxLifetime)
	sqlDB.SetConnMaxIdleTime(limits.maxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics and an error if unable to retrieve
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}
