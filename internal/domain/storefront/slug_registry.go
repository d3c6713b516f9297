package storefront

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrSlugTaken is returned when another tenant already owns the slug
	ErrSlugTaken = errors.New("storefront: slug already taken")
	// ErrSlugNotFound is returned when no storefront claims the slug
	ErrSlugNotFound = errors.New("storefront: slug not found")
)

// ResolvedSlug maps a public slug to the tenant and storefront serving it
type ResolvedSlug struct {
	Slug         string
	TenantID     uuid.UUID
	StorefrontID uuid.UUID
}

// SlugRegistry is the port for the control-plane slug directory. Slugs
// are unique across all tenants, which no single tenant database can
// enforce; the registry lives in the control plane and is consulted
// before tenant routing when serving public storefront traffic.
type SlugRegistry interface {
	// Claim registers a slug for a storefront. Returns ErrSlugTaken when
	// the slug is already owned by a different storefront.
	Claim(ctx context.Context, slug string, tenantID, storefrontID uuid.UUID) error

	// Release frees a slug, for storefront deletion or renaming
	Release(ctx context.Context, slug string) error

	// Resolve returns the owner of a slug. Returns ErrSlugNotFound for
	// unclaimed slugs.
	Resolve(ctx context.Context, slug string) (*ResolvedSlug, error)
}
