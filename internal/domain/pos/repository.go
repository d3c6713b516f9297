package pos

import (
	"context"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleRepository defines the interface for sale persistence.
// The tenant whose sales are queried travels in the context.
type SaleRepository interface {
	// FindByID finds a sale by its ID, lines and payments included
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByNumber finds a sale by its number
	FindByNumber(ctx context.Context, number string) (*Sale, error)

	// FindAll finds all sales matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Sale, error)

	// FindByStatus finds sales by status
	FindByStatus(ctx context.Context, status SaleStatus, filter shared.Filter) ([]Sale, error)

	// FindByCashier finds sales rung up by one cashier
	FindByCashier(ctx context.Context, cashierID uuid.UUID, filter shared.Filter) ([]Sale, error)

	// FindByCustomer finds sales attached to one customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Sale, error)

	// FindByPeriod finds sales completed in a time window
	FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]Sale, error)

	// FindOpenOlderThan finds open sales abandoned before the cutoff
	FindOpenOlderThan(ctx context.Context, cutoff time.Time) ([]Sale, error)

	// Save creates or updates a sale with its lines and payments
	Save(ctx context.Context, sale *Sale) error

	// ReassignCustomer repoints every sale of one customer to another.
	// Used when duplicate customer records are merged. Returns the number
	// of sales moved.
	ReassignCustomer(ctx context.Context, fromCustomerID, toCustomerID uuid.UUID) (int64, error)

	// Delete deletes a sale
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts sales matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts sales in one status
	CountByStatus(ctx context.Context, status SaleStatus) (int64, error)
}
