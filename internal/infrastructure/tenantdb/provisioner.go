package tenantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// databaseNamePattern matches the identifiers we are willing to create.
// Names are built from the configured prefix plus the lowercased tenant
// code, so anything outside this set means a bug upstream, not user input.
var databaseNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Provisioner creates dedicated tenant databases and brings their schema up
// to date. Ensure is idempotent: an existing database is left alone and only
// missing migrations are applied, which is what lets an interrupted move be
// rerun safely.
type Provisioner struct {
	admin     *sql.DB
	dsnFor    func(dbName string) string
	source    fs.FS
	sourceDir string
	table     string
	prefix    string
	logger    *zap.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithDatabasePrefix sets the prefix for generated database names
// (default "tenant_").
func WithDatabasePrefix(prefix string) ProvisionerOption {
	return func(p *Provisioner) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithMigrationsTable sets the schema version table used in tenant databases
// (default "schema_migrations_tenant"). The tenant migration set also runs
// against the shared pool, where the control-plane set owns the default
// schema_migrations table, so the two sets must not share one.
func WithMigrationsTable(table string) ProvisionerOption {
	return func(p *Provisioner) {
		if table != "" {
			p.table = table
		}
	}
}

// WithProvisionerLogger sets the logger.
func WithProvisionerLogger(logger *zap.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// NewProvisioner creates a Provisioner. admin must be a connection to the
// control-plane database with CREATEDB rights; dsnFor builds a DSN for a
// database by name; source and sourceDir locate the embedded tenant
// migration files.
func NewProvisioner(admin *sql.DB, dsnFor func(dbName string) string, source fs.FS, sourceDir string, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		admin:     admin,
		dsnFor:    dsnFor,
		source:    source,
		sourceDir: sourceDir,
		table:     "schema_migrations_tenant",
		prefix:    "tenant_",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DatabaseName derives the dedicated database name for a tenant code. The
// code is lowercased and anything outside [a-z0-9] becomes an underscore;
// the result is prefixed and truncated to the Postgres identifier limit.
func (p *Provisioner) DatabaseName(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := p.prefix + b.String()
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// Ensure creates the database if it does not exist and applies any missing
// tenant migrations to it.
func (p *Provisioner) Ensure(ctx context.Context, dbName string) error {
	if !databaseNamePattern.MatchString(dbName) {
		return fmt.Errorf("invalid tenant database name %q", dbName)
	}

	var exists bool
	row := p.admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("check database %s: %w", dbName, err)
	}

	if !exists {
		// CREATE DATABASE cannot run inside a transaction, and two movers
		// can race here; losing the race is fine.
		_, err := p.admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
		if err != nil && !isDuplicateDatabase(err) {
			return fmt.Errorf("create database %s: %w", dbName, err)
		}
		if err == nil {
			p.logger.Info("created tenant database", zap.String("database", dbName))
		}
	}

	return p.migrateUp(ctx, dbName)
}

func (p *Provisioner) migrateUp(ctx context.Context, dbName string) error {
	src, err := iofs.New(p.source, p.sourceDir)
	if err != nil {
		return fmt.Errorf("open tenant migration source: %w", err)
	}

	db, err := sql.Open("postgres", p.dsnFor(dbName))
	if err != nil {
		return fmt.Errorf("open connection to %s: %w", dbName, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", dbName, err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		DatabaseName:    dbName,
		MigrationsTable: p.table,
	})
	if err != nil {
		return fmt.Errorf("init migration driver for %s: %w", dbName, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("init migrations for %s: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply tenant schema to %s: %w", dbName, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version of %s: %w", dbName, err)
	}
	p.logger.Info("tenant schema up to date",
		zap.String("database", dbName),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// isDuplicateDatabase reports whether err is Postgres error 42P04
// (duplicate_database), which means another mover won the creation race.
func isDuplicateDatabase(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P04"
}
