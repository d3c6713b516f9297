package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// setupMockDB creates a GORM handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// mockSource yields handles the way the router does for shared placement:
// scoped to one tenant, so every statement a repository issues must carry
// the tenant filter to match its expectation.
type mockSource struct {
	db       *gorm.DB
	tenantID uuid.UUID
	err      error
}

func (s *mockSource) DBFor(ctx context.Context) (*gorm.DB, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.db.WithContext(ctx).Scopes(tenantdb.TenantScope(s.tenantID)), nil
}

func newMockSource(t *testing.T) (*mockSource, sqlmock.Sqlmock, *sql.DB) {
	db, mock, mockDB := setupMockDB(t)
	return &mockSource{db: db, tenantID: uuid.New()}, mock, mockDB
}

// tenantContext returns a context carrying the tenant ID the way the
// request middleware sets it.
func tenantContext(tenantID uuid.UUID) context.Context {
	ctx := context.Background()
	log := logger.FromContext(ctx)
	ctx, _ = logger.WithTenantID(ctx, log, tenantID.String())
	return ctx
}

var _ tenantdb.Source = (*mockSource)(nil)
