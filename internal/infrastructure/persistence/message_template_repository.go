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

// GormTemplateRepository implements TemplateRepository using GORM
type GormTemplateRepository struct {
	source tenantdb.Source
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(source tenantdb.Source) *GormTemplateRepository {
	return &GormTemplateRepository{source: source}
}

// FindByID finds a template by its ID
func (r *GormTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*channel.MessageTemplate, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var template channel.MessageTemplate
	if err := db.First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindByKey finds a template by platform, name, and language
func (r *GormTemplateRepository) FindByKey(ctx context.Context, platform channel.Platform, name, language string) (*channel.MessageTemplate, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var template channel.MessageTemplate
	if err := db.Where("platform = ? AND name = ? AND language = ?", platform, name, language).
		First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindAll finds all templates matching the filter
func (r *GormTemplateRepository) FindAll(ctx context.Context, filter shared.Filter) ([]channel.MessageTemplate, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var templates []channel.MessageTemplate
	query := r.applyFilter(db.Model(&channel.MessageTemplate{}), filter)

	if err := query.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// FindApproved finds templates cleared for sending on one platform
func (r *GormTemplateRepository) FindApproved(ctx context.Context, platform channel.Platform) ([]channel.MessageTemplate, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var templates []channel.MessageTemplate
	if err := db.Where("platform = ? AND approval_status = ?", platform, channel.TemplateApprovalApproved).
		Order("name ASC, language ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Save creates or updates a template
func (r *GormTemplateRepository) Save(ctx context.Context, template *channel.MessageTemplate) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(template).Error
}

// Delete deletes a template
func (r *GormTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&channel.MessageTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts templates matching the filter
func (r *GormTemplateRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := r.applyFilterWithoutPagination(db.Model(&channel.MessageTemplate{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormTemplateRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, MessageTemplateSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("name ASC, language ASC")
	}

	return query
}

func (r *GormTemplateRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "platform":
			query = query.Where("platform = ?", value)
		case "approval_status":
			query = query.Where("approval_status = ?", value)
		case "category":
			query = query.Where("category = ?", value)
		case "language":
			query = query.Where("language = ?", value)
		}
	}

	return query
}

// Ensure GormTemplateRepository implements TemplateRepository
var _ channel.TemplateRepository = (*GormTemplateRepository)(nil)
