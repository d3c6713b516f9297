// Package integration exercises the persistence and tenant routing stack
// against a real PostgreSQL server. Containers are started per test via
// testcontainers, so these tests need a Docker daemon and are skipped in
// short mode.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retail/backend/migrations"
)

// tenantMigrationsTable mirrors the version table the provisioner uses, so
// the tenant set can share a database with the control-plane set.
const tenantMigrationsTable = "schema_migrations_tenant"

// TestDB is one PostgreSQL container with both migration sets applied to
// its default database: the control-plane tables plus the shared-pool
// tenant tables, the same layout the shared database has in production.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container and migrates it. The
// container is terminated when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("retail_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, sqlDB := connectToDatabase(t, dsn)

	applyMigrationSet(t, sqlDB, migrations.ControlPlaneDir, "")
	applyMigrationSet(t, sqlDB, migrations.TenantDir, tenantMigrationsTable)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

// Close closes the connection and terminates the container.
func (tdb *TestDB) Close() {
	ctx := context.Background()

	if tdb.SqlDB != nil {
		tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(ctx); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// DSNForDatabase rewrites the container DSN to target another database on
// the same server, the way dedicated tenant databases are dialed.
func (tdb *TestDB) DSNForDatabase(dbName string) string {
	u, err := url.Parse(tdb.DSN)
	require.NoError(tdb.t, err, "Failed to parse container DSN")
	u.Path = dbName
	return u.String()
}

// OpenDatabase opens a gorm handle on another database in the container.
func (tdb *TestDB) OpenDatabase(dbName string) (*gorm.DB, error) {
	db, err := gorm.Open(gormpostgres.Open(tdb.DSNForDatabase(dbName)), &gorm.Config{
		Logger: testGormLogger(),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(3)
	return db, nil
}

// CleanTables truncates every table except the migration version tables.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename NOT IN ('schema_migrations', ?)
	`, tenantMigrationsTable).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error
		if err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: testGormLogger(),
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

func testGormLogger() gormlogger.Interface {
	if os.Getenv("TEST_DB_DEBUG") != "" {
		return gormlogger.Default.LogMode(gormlogger.Info)
	}
	return gormlogger.Default.LogMode(gormlogger.Silent)
}

// applyMigrationSet runs one embedded migration set. An empty table name
// uses golang-migrate's default version table.
func applyMigrationSet(t *testing.T, sqlDB *sql.DB, dir, table string) {
	t.Helper()

	source, err := iofs.New(migrations.FS, dir)
	require.NoError(t, err, "Failed to open migration source %s", dir)

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{MigrationsTable: table})
	require.NoError(t, err, "Failed to create migration driver")

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to run %s migrations", dir)
	}
}
