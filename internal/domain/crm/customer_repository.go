package crm

import (
	"context"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence.
// The tenant whose customers are queried travels in the context.
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByPhone finds a customer by normalized phone number
	FindByPhone(ctx context.Context, phone string) (*Customer, error)

	// FindAll finds all customers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, error)

	// FindOptedIn finds active customers who accepted WhatsApp messaging
	FindOptedIn(ctx context.Context, filter shared.Filter) ([]Customer, error)

	// FindTopBySpend returns the highest lifetime-spend customers
	FindTopBySpend(ctx context.Context, limit int) ([]Customer, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error

	// SaveAll persists multiple customers in one transaction,
	// used by the duplicate merge flow
	SaveAll(ctx context.Context, customers ...*Customer) error

	// Delete deletes a customer
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts customers matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByPhone checks if a customer with the given phone exists
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}
