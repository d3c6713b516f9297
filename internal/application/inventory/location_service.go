package inventory

import (
	"context"
	"errors"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/google/uuid"
)

// LocationService handles stock location management
type LocationService struct {
	locationRepo   inventory.LocationRepository
	levelRepo      inventory.StockLevelRepository
	eventPublisher shared.EventPublisher
}

// NewLocationService creates a new LocationService
func NewLocationService(
	locationRepo inventory.LocationRepository,
	levelRepo inventory.StockLevelRepository,
) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		levelRepo:    levelRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *LocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new stock location
func (s *LocationService) Create(ctx context.Context, req CreateLocationRequest) (*LocationResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := s.locationRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Location with this name already exists")
	}

	location, err := inventory.NewLocation(tenantID, req.Name, inventory.LocationType(req.Type))
	if err != nil {
		return nil, err
	}

	if req.Address != "" {
		if err := location.Update(req.Name, req.Address); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		location.SetSortOrder(*req.SortOrder)
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, location.GetDomainEvents()...); err != nil {
			return nil, err
		}
		location.ClearDomainEvents()
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// EnsureDefault returns the tenant's default location, creating it when the
// tenant has none yet. Provisioning calls this so every tenant starts with
// a sellable store location.
func (s *LocationService) EnsureDefault(ctx context.Context, name string) (*LocationResponse, error) {
	location, err := s.locationRepo.FindDefault(ctx)
	if err == nil {
		response := ToLocationResponse(location)
		return &response, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	location, err = inventory.NewDefaultLocation(tenantID, name)
	if err != nil {
		return nil, err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, location.GetDomainEvents()...); err != nil {
			return nil, err
		}
		location.ClearDomainEvents()
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// GetByID retrieves a location by ID
func (s *LocationService) GetByID(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToLocationResponse(location)
	return &response, nil
}

// GetDefault retrieves the tenant's default location
func (s *LocationService) GetDefault(ctx context.Context) (*LocationResponse, error) {
	location, err := s.locationRepo.FindDefault(ctx)
	if err != nil {
		return nil, err
	}
	response := ToLocationResponse(location)
	return &response, nil
}

// List retrieves locations with filtering and pagination
func (s *LocationService) List(ctx context.Context, filter LocationListFilter) ([]LocationResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "sort_order"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}

	locations, err := s.locationRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.locationRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToLocationResponses(locations), total, nil
}

// Update updates a location's basic information
func (s *LocationService) Update(ctx context.Context, id uuid.UUID, req UpdateLocationRequest) (*LocationResponse, error) {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := location.Name
	if req.Name != nil && *req.Name != location.Name {
		exists, err := s.locationRepo.ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Location with this name already exists")
		}
		name = *req.Name
	}

	address := location.Address
	if req.Address != nil {
		address = *req.Address
	}

	if err := location.Update(name, address); err != nil {
		return nil, err
	}
	if req.SortOrder != nil {
		location.SetSortOrder(*req.SortOrder)
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// SetDefault makes a location the tenant's default. The previous default
// loses the flag in the same call.
func (s *LocationService) SetDefault(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !location.IsActive() {
		return nil, shared.NewDomainError("LOCATION_INACTIVE", "An inactive location cannot be the default")
	}

	current, err := s.locationRepo.FindDefault(ctx)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if current != nil && current.ID != location.ID {
		current.SetDefault(false)
		if err := s.locationRepo.Save(ctx, current); err != nil {
			return nil, err
		}
	}

	location.SetDefault(true)
	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// Enable reactivates a location
func (s *LocationService) Enable(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := location.Enable(); err != nil {
		return nil, err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// Disable deactivates a location. The default location must be replaced
// before it can be disabled.
func (s *LocationService) Disable(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := location.Disable(); err != nil {
		return nil, err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		return nil, err
	}

	response := ToLocationResponse(location)
	return &response, nil
}

// Delete deletes a location. Locations holding stock records cannot be
// deleted, and neither can the default location.
func (s *LocationService) Delete(ctx context.Context, id uuid.UUID) error {
	location, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if location.IsDefault {
		return shared.NewDomainError("CANNOT_DELETE_DEFAULT", "Cannot delete the default location")
	}

	levelFilter := shared.Filter{Filters: map[string]interface{}{"location_id": id}}
	count, err := s.levelRepo.Count(ctx, levelFilter)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("LOCATION_IN_USE", "Location still has stock records")
	}

	return s.locationRepo.Delete(ctx, id)
}
