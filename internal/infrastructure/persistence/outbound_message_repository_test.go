package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail/backend/internal/domain/channel"
)

func TestGormOutboundMessageRepository_FindDue(t *testing.T) {
	t.Run("keeps the tenant filter outside the OR group", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormOutboundMessageRepository(source)
		now := time.Now()

		// A failed branch matching without the tenant filter would leak
		// another tenant's queue into this dispatcher pass. The double
		// parentheses are the hand-written group plus the one GORM adds
		// around raw conditions containing OR.
		mock.ExpectQuery(`SELECT \* FROM "outbound_messages" WHERE \(\(status = \$1 OR \(status = \$2 AND \(next_attempt_at IS NULL OR next_attempt_at <= \$3\)\)\)\) AND tenant_id = \$4 ORDER BY created_at ASC LIMIT \$5`).
			WithArgs(
				string(channel.MessageStatusQueued),
				string(channel.MessageStatusFailed),
				now,
				source.tenantID,
				50,
			).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}).
				AddRow(uuid.New(), source.tenantID, string(channel.MessageStatusQueued)).
				AddRow(uuid.New(), source.tenantID, string(channel.MessageStatusFailed)))

		messages, err := repo.FindDue(context.Background(), now, 0)

		require.NoError(t, err)
		assert.Len(t, messages, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("caps the batch at the requested limit", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormOutboundMessageRepository(source)
		now := time.Now()

		mock.ExpectQuery(`SELECT \* FROM "outbound_messages"`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), source.tenantID, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}))

		messages, err := repo.FindDue(context.Background(), now, 10)

		require.NoError(t, err)
		assert.Empty(t, messages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboundMessageRepository_CountByStatus(t *testing.T) {
	t.Run("maps grouped counts by status", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormOutboundMessageRepository(source)

		mock.ExpectQuery(`SELECT status, COUNT\(\*\) as count FROM "outbound_messages" WHERE tenant_id = \$1 GROUP BY "status"`).
			WithArgs(source.tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
				AddRow("queued", 3).
				AddRow("dead", 1))

		counts, err := repo.CountByStatus(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(3), counts[channel.MessageStatusQueued])
		assert.Equal(t, int64(1), counts[channel.MessageStatusDead])
		assert.Equal(t, int64(0), counts[channel.MessageStatusSent])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboundMessageRepository_DeleteSentOlderThan(t *testing.T) {
	t.Run("prunes only delivered messages past the cutoff", func(t *testing.T) {
		source, mock, mockDB := newMockSource(t)
		defer mockDB.Close()
		repo := NewGormOutboundMessageRepository(source)
		cutoff := time.Now().AddDate(0, 0, -90)

		mock.ExpectExec(`DELETE FROM "outbound_messages" WHERE \(status = \$1 AND sent_at < \$2\) AND tenant_id = \$3`).
			WithArgs(string(channel.MessageStatusSent), cutoff, source.tenantID).
			WillReturnResult(sqlmock.NewResult(0, 12))

		pruned, err := repo.DeleteSentOlderThan(context.Background(), cutoff)

		require.NoError(t, err)
		assert.Equal(t, int64(12), pruned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
