package inventory

import (
	"context"
	"errors"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/google/uuid"
)

// StockService handles stock operations against the movement ledger. Every
// on-hand change persists the level and its ledger row in one transaction
// through SaveWithMovements.
type StockService struct {
	levelRepo      inventory.StockLevelRepository
	movementRepo   inventory.StockMovementRepository
	locationRepo   inventory.LocationRepository
	transferSvc    *inventory.StockService
	eventPublisher shared.EventPublisher
}

// NewStockService creates a new StockService
func NewStockService(
	levelRepo inventory.StockLevelRepository,
	movementRepo inventory.StockMovementRepository,
	locationRepo inventory.LocationRepository,
) *StockService {
	return &StockService{
		levelRepo:    levelRepo,
		movementRepo: movementRepo,
		locationRepo: locationRepo,
		transferSvc:  inventory.NewStockService(),
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// resolveLocation maps a nil location to the tenant's default location
func (s *StockService) resolveLocation(ctx context.Context, locationID *uuid.UUID) (uuid.UUID, error) {
	if locationID != nil {
		return *locationID, nil
	}
	location, err := s.locationRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.NewDomainError("NO_DEFAULT_LOCATION", "Tenant has no default location")
		}
		return uuid.Nil, err
	}
	return location.ID, nil
}

// levelFor finds the stock level for a location-product pair, creating an
// empty one when the pair has never held stock
func (s *StockService) levelFor(ctx context.Context, locationID, productID uuid.UUID) (*inventory.StockLevel, error) {
	level, err := s.levelRepo.FindByLocationAndProduct(ctx, locationID, productID)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.NewStockLevel(tenantID, locationID, productID)
}

// existingLevelFor finds the stock level for a pair that must already hold
// stock. Deductions and reservations against a pair that was never stocked
// fail as insufficient rather than not found.
func (s *StockService) existingLevelFor(ctx context.Context, locationID, productID uuid.UUID) (*inventory.StockLevel, error) {
	level, err := s.levelRepo.FindByLocationAndProduct(ctx, locationID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInsufficientStock
		}
		return nil, err
	}
	return level, nil
}

func (s *StockService) persist(ctx context.Context, level *inventory.StockLevel, movements ...*inventory.StockMovement) error {
	if err := s.levelRepo.SaveWithMovements(ctx, []*inventory.StockLevel{level}, movements); err != nil {
		return err
	}
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, level.GetDomainEvents()...); err != nil {
			return err
		}
		level.ClearDomainEvents()
	}
	return nil
}

// Receive records goods arriving at a location
func (s *StockService) Receive(ctx context.Context, req ReceiveStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.levelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	movement, err := level.Receive(req.Quantity, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		movement.WithRecordedBy(*req.RecordedBy)
	}

	if err := s.persist(ctx, level, movement); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// Adjust corrects on-hand to a counted quantity. The reason is recorded on
// the ledger row.
func (s *StockService) Adjust(ctx context.Context, req AdjustStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.levelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	movement, err := level.Adjust(req.NewQuantity, req.Reason, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		movement.WithRecordedBy(*req.RecordedBy)
	}

	if err := s.persist(ctx, level, movement); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// Transfer moves stock between two locations of the same product. Both
// levels and both ledger rows are written in one transaction.
func (s *StockService) Transfer(ctx context.Context, req TransferStockRequest) (*TransferResponse, error) {
	from, err := s.existingLevelFor(ctx, req.FromLocationID, req.ProductID)
	if err != nil {
		return nil, err
	}
	to, err := s.levelFor(ctx, req.ToLocationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	result, err := s.transferSvc.Transfer(from, to, req.Quantity, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		result.Outbound.WithRecordedBy(*req.RecordedBy)
		result.Inbound.WithRecordedBy(*req.RecordedBy)
	}

	levels := []*inventory.StockLevel{from, to}
	movements := []*inventory.StockMovement{result.Outbound, result.Inbound}
	if err := s.levelRepo.SaveWithMovements(ctx, levels, movements); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		events := append(from.GetDomainEvents(), to.GetDomainEvents()...)
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			return nil, err
		}
		from.ClearDomainEvents()
		to.ClearDomainEvents()
	}

	return &TransferResponse{
		From:     ToStockLevelResponse(from),
		To:       ToStockLevelResponse(to),
		Outbound: ToStockMovementResponse(result.Outbound),
		Inbound:  ToStockMovementResponse(result.Inbound),
	}, nil
}

// SetReorderPoint sets the restock threshold for a location-product pair
func (s *StockService) SetReorderPoint(ctx context.Context, req SetReorderPointRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.levelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := level.SetReorderPoint(req.ReorderPoint); err != nil {
		return nil, err
	}

	if err := s.levelRepo.Save(ctx, level); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// Reserve holds available stock for a placed order. No ledger row is
// written until the reservation is consumed or released.
func (s *StockService) Reserve(ctx context.Context, req ReserveStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.existingLevelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := level.Reserve(req.Quantity); err != nil {
		return nil, err
	}

	if err := s.levelRepo.Save(ctx, level); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// Release returns reserved stock to the available balance
func (s *StockService) Release(ctx context.Context, req ReleaseStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.existingLevelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := level.Release(req.Quantity); err != nil {
		return nil, err
	}

	if err := s.levelRepo.Save(ctx, level); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// DeductForSale removes sold goods from the available balance
func (s *StockService) DeductForSale(ctx context.Context, req DeductStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.existingLevelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	movement, err := level.DeductForSale(req.Quantity, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		movement.WithRecordedBy(*req.RecordedBy)
	}

	if err := s.persist(ctx, level, movement); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// DeductReserved consumes a reservation when its order ships
func (s *StockService) DeductReserved(ctx context.Context, req DeductStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.existingLevelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	movement, err := level.DeductReserved(req.Quantity, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		movement.WithRecordedBy(*req.RecordedBy)
	}

	if err := s.persist(ctx, level, movement); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// ReturnFromSale puts goods from a voided sale or customer return back
// into stock
func (s *StockService) ReturnFromSale(ctx context.Context, req ReturnStockRequest) (*StockLevelResponse, error) {
	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	level, err := s.levelFor(ctx, locationID, req.ProductID)
	if err != nil {
		return nil, err
	}

	movement, err := level.ReturnFromSale(req.Quantity, req.Reference)
	if err != nil {
		return nil, err
	}
	if req.RecordedBy != nil {
		movement.WithRecordedBy(*req.RecordedBy)
	}

	if err := s.persist(ctx, level, movement); err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// GetLevel retrieves the stock level for a location-product pair. Pairs
// that never held stock report zero quantities.
func (s *StockService) GetLevel(ctx context.Context, locationID *uuid.UUID, productID uuid.UUID) (*StockLevelResponse, error) {
	resolved, err := s.resolveLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	level, err := s.levelFor(ctx, resolved, productID)
	if err != nil {
		return nil, err
	}

	response := ToStockLevelResponse(level)
	return &response, nil
}

// ListByLocation retrieves stock levels at one location
func (s *StockService) ListByLocation(ctx context.Context, locationID uuid.UUID, filter StockLevelListFilter) ([]StockLevelResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  map[string]interface{}{"location_id": locationID},
	}
	if filter.Stocked != nil {
		domainFilter.Filters["stocked"] = *filter.Stocked
	}

	levels, err := s.levelRepo.FindByLocation(ctx, locationID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.levelRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToStockLevelResponses(levels), total, nil
}

// ListByProduct retrieves a product's stock levels across all locations
func (s *StockService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]StockLevelResponse, error) {
	levels, err := s.levelRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ToStockLevelResponses(levels), nil
}

// ListLowStock retrieves levels at or below their reorder point
func (s *StockService) ListLowStock(ctx context.Context, locationID *uuid.UUID, page, pageSize int) ([]StockLevelResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     page,
		PageSize: pageSize,
		Filters:  make(map[string]interface{}),
	}
	if locationID != nil {
		domainFilter.Filters["location_id"] = *locationID
	}

	levels, err := s.levelRepo.FindBelowReorderPoint(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToStockLevelResponses(levels), nil
}

// ListMovements retrieves ledger rows for a product, newest first
func (s *StockService) ListMovements(ctx context.Context, productID uuid.UUID, filter MovementListFilter) ([]StockMovementResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "occurred_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  map[string]interface{}{"product_id": productID},
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.LocationID != nil {
		domainFilter.Filters["location_id"] = *filter.LocationID
	}

	movements, err := s.movementRepo.FindByProduct(ctx, productID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.movementRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToStockMovementResponses(movements), total, nil
}

// MovementsByReference retrieves every ledger row a source document wrote
func (s *StockService) MovementsByReference(ctx context.Context, reference string) ([]StockMovementResponse, error) {
	movements, err := s.movementRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return ToStockMovementResponses(movements), nil
}
