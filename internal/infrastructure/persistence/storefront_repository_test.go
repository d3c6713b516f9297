package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail/backend/internal/domain/shared"
)

func TestGormStorefrontRepository_FindBySlug(t *testing.T) {
	t.Run("normalizes the slug before matching", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormStorefrontRepository(source)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "slug", "display_name"}).
			AddRow(uuid.New(), source.tenantID, "acme-stores", "Acme Stores")

		mock.ExpectQuery(`SELECT \* FROM "storefronts" WHERE slug = \$1 AND tenant_id = \$2`).
			WithArgs("acme-stores", source.tenantID, 1).
			WillReturnRows(rows)

		sf, err := repo.FindBySlug(context.Background(), "  Acme-Stores ")

		require.NoError(t, err)
		assert.Equal(t, "acme-stores", sf.Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid slug is not found without querying", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormStorefrontRepository(source)

		sf, err := repo.FindBySlug(context.Background(), "-bad slug-")

		assert.Nil(t, sf)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
