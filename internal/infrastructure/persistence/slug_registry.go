package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retail/backend/internal/domain/storefront"
)

// storefrontSlugRow is the control-plane record backing the slug registry.
// Slugs are globally unique across tenants, so the table cannot live in any
// tenant database.
// A storefront may briefly hold two slugs mid-rename (claim the new one
// before releasing the old), so storefront_id is deliberately not unique.
type storefrontSlugRow struct {
	Slug         string    `gorm:"type:varchar(64);primaryKey"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	StorefrontID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (storefrontSlugRow) TableName() string {
	return "storefront_slugs"
}

// GormSlugRegistry implements SlugRegistry on the control-plane database
type GormSlugRegistry struct {
	db *gorm.DB
}

// NewGormSlugRegistry creates a new GormSlugRegistry
func NewGormSlugRegistry(db *gorm.DB) *GormSlugRegistry {
	return &GormSlugRegistry{db: db}
}

// Claim registers a slug for a storefront. The insert relies on the primary
// key for uniqueness, so two tenants racing for the same slug cannot both
// win. Re-claiming a slug already held by the same storefront succeeds.
func (r *GormSlugRegistry) Claim(ctx context.Context, slug string, tenantID, storefrontID uuid.UUID) error {
	normalized, err := storefront.NormalizeSlug(slug)
	if err != nil {
		return err
	}

	row := storefrontSlugRow{
		Slug:         normalized,
		TenantID:     tenantID,
		StorefrontID: storefrontID,
		CreatedAt:    time.Now(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var existing storefrontSlugRow
		if err := r.db.WithContext(ctx).First(&existing, "slug = ?", normalized).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The winning claim was released between our insert and this
				// read; treat it as taken and let the caller retry.
				return storefront.ErrSlugTaken
			}
			return err
		}
		if existing.StorefrontID == storefrontID {
			return nil
		}
		return storefront.ErrSlugTaken
	}
	return nil
}

// Release frees a slug. Releasing an unclaimed slug is a no-op.
func (r *GormSlugRegistry) Release(ctx context.Context, slug string) error {
	normalized, err := storefront.NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("slug = ?", normalized).
		Delete(&storefrontSlugRow{}).Error
}

// Resolve returns the owner of a slug
func (r *GormSlugRegistry) Resolve(ctx context.Context, slug string) (*storefront.ResolvedSlug, error) {
	normalized, err := storefront.NormalizeSlug(slug)
	if err != nil {
		return nil, storefront.ErrSlugNotFound
	}

	var row storefrontSlugRow
	if err := r.db.WithContext(ctx).First(&row, "slug = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storefront.ErrSlugNotFound
		}
		return nil, err
	}
	return &storefront.ResolvedSlug{
		Slug:         row.Slug,
		TenantID:     row.TenantID,
		StorefrontID: row.StorefrontID,
	}, nil
}

// Ensure GormSlugRegistry implements SlugRegistry
var _ storefront.SlugRegistry = (*GormSlugRegistry)(nil)
