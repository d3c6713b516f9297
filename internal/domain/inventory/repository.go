package inventory

import (
	"context"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LocationRepository defines the interface for location persistence.
// The tenant whose stock is queried travels in the context.
type LocationRepository interface {
	// FindByID finds a location by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// FindByName finds a location by its name
	FindByName(ctx context.Context, name string) (*Location, error)

	// FindAll finds all locations matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Location, error)

	// FindDefault finds the tenant's default location
	FindDefault(ctx context.Context) (*Location, error)

	// Save creates or updates a location
	Save(ctx context.Context, location *Location) error

	// Delete deletes a location
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts locations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByName checks if a location with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// StockLevelRepository defines the interface for stock level persistence
type StockLevelRepository interface {
	// FindByID finds a stock level by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockLevel, error)

	// FindByLocationAndProduct finds the level for a location-product pair
	FindByLocationAndProduct(ctx context.Context, locationID, productID uuid.UUID) (*StockLevel, error)

	// FindByLocation finds all levels in a location
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]StockLevel, error)

	// FindByProduct finds all levels for a product across locations
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockLevel, error)

	// FindBelowReorderPoint finds levels at or below their reorder point
	FindBelowReorderPoint(ctx context.Context, filter shared.Filter) ([]StockLevel, error)

	// Save creates or updates a stock level
	Save(ctx context.Context, level *StockLevel) error

	// SaveWithMovements persists levels and appends their ledger rows in a
	// single transaction
	SaveWithMovements(ctx context.Context, levels []*StockLevel, movements []*StockMovement) error

	// Delete deletes a stock level
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts stock levels matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// StockMovementRepository defines the interface for the append-only
// movement ledger. Movements are never updated or deleted.
type StockMovementRepository interface {
	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// FindByStockLevel finds movements for one stock level, newest first
	FindByStockLevel(ctx context.Context, stockLevelID uuid.UUID, filter shared.Filter) ([]StockMovement, error)

	// FindByProduct finds movements for a product across locations
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockMovement, error)

	// FindByReference finds movements written by one source document
	FindByReference(ctx context.Context, reference string) ([]StockMovement, error)

	// FindByPeriod finds movements in a time window, newest first
	FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]StockMovement, error)

	// Append writes new ledger rows
	Append(ctx context.Context, movements ...*StockMovement) error

	// Count counts movements matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
