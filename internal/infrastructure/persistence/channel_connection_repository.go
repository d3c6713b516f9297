package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormConnectionRepository implements ConnectionRepository using GORM
type GormConnectionRepository struct {
	source tenantdb.Source
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(source tenantdb.Source) *GormConnectionRepository {
	return &GormConnectionRepository{source: source}
}

// FindByID finds a connection by its ID
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*channel.ChannelConnection, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var conn channel.ChannelConnection
	if err := db.First(&conn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByPlatform finds the tenant's connection for one platform
func (r *GormConnectionRepository) FindByPlatform(ctx context.Context, platform channel.Platform) (*channel.ChannelConnection, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var conn channel.ChannelConnection
	if err := db.Where("platform = ?", platform).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindAll finds all of the tenant's connections
func (r *GormConnectionRepository) FindAll(ctx context.Context) ([]channel.ChannelConnection, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var conns []channel.ChannelConnection
	if err := db.Order("platform ASC").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormConnectionRepository) Save(ctx context.Context, conn *channel.ChannelConnection) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(conn).Error
}

// Delete deletes a connection
func (r *GormConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&channel.ChannelConnection{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByPlatform checks if a connection exists for the platform
func (r *GormConnectionRepository) ExistsByPlatform(ctx context.Context, platform channel.Platform) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&channel.ChannelConnection{}).
		Where("platform = ?", platform).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormConnectionRepository implements ConnectionRepository
var _ channel.ConnectionRepository = (*GormConnectionRepository)(nil)
