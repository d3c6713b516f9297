package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormOutboundMessageRepository implements OutboundMessageRepository using GORM
type GormOutboundMessageRepository struct {
	source tenantdb.Source
}

// NewGormOutboundMessageRepository creates a new GormOutboundMessageRepository
func NewGormOutboundMessageRepository(source tenantdb.Source) *GormOutboundMessageRepository {
	return &GormOutboundMessageRepository{source: source}
}

// FindByID finds a message by its ID
func (r *GormOutboundMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*channel.OutboundMessage, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var msg channel.OutboundMessage
	if err := db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// FindDue returns queued messages plus failed messages whose backoff has
// elapsed, oldest first, up to limit
func (r *GormOutboundMessageRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]channel.OutboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var messages []channel.OutboundMessage
	// The OR group is parenthesized by hand so the routed tenant filter
	// applies to both branches.
	if err := db.
		Where("(status = ? OR (status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)))",
			channel.MessageStatusQueued, channel.MessageStatusFailed, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// FindDead returns dead-lettered messages with pagination
func (r *GormOutboundMessageRepository) FindDead(ctx context.Context, filter shared.Filter) ([]channel.OutboundMessage, int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := db.Model(&channel.OutboundMessage{}).
		Where("status = ?", channel.MessageStatusDead).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []channel.OutboundMessage
	if err := db.Where("status = ?", channel.MessageStatusDead).
		Order("updated_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// FindByRecipient finds messages sent to one recipient
func (r *GormOutboundMessageRepository) FindByRecipient(ctx context.Context, recipient string, filter shared.Filter) ([]channel.OutboundMessage, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var messages []channel.OutboundMessage
	query := db.Model(&channel.OutboundMessage{}).
		Where("recipient = ?", recipient)

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	query = query.Order("created_at DESC")
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// FindBySource finds messages produced by one source document
func (r *GormOutboundMessageRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]channel.OutboundMessage, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var messages []channel.OutboundMessage
	if err := db.Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// Save creates or updates a message
func (r *GormOutboundMessageRepository) Save(ctx context.Context, msg *channel.OutboundMessage) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(msg).Error
}

// Delete deletes a message
func (r *GormOutboundMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&channel.OutboundMessage{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of messages in each status
func (r *GormOutboundMessageRepository) CountByStatus(ctx context.Context) (map[channel.MessageStatus]int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status channel.MessageStatus
		Count  int64
	}
	if err := db.Model(&channel.OutboundMessage{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[channel.MessageStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DeleteSentOlderThan prunes delivered messages past the retention window
func (r *GormOutboundMessageRepository) DeleteSentOlderThan(ctx context.Context, before time.Time) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Where("status = ? AND sent_at < ?", channel.MessageStatusSent, before).
		Delete(&channel.OutboundMessage{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormOutboundMessageRepository implements OutboundMessageRepository
var _ channel.OutboundMessageRepository = (*GormOutboundMessageRepository)(nil)
