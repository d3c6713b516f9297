package inventory

import (
	"time"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLocationRequest represents a request to create a stock location
type CreateLocationRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Address   string `json:"address"`
	SortOrder *int   `json:"sort_order"`
}

// UpdateLocationRequest represents a request to update a location.
// Nil fields are left unchanged.
type UpdateLocationRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	SortOrder *int    `json:"sort_order"`
}

// LocationResponse represents a location in API responses
type LocationResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Address   string    `json:"address"`
	IsDefault bool      `json:"is_default"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// LocationListFilter represents filter options for location list
type LocationListFilter struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Type     string `json:"type"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir"`
}

// ToLocationResponse converts a domain Location to LocationResponse
func ToLocationResponse(l *inventory.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		TenantID:  l.TenantID,
		Name:      l.Name,
		Type:      string(l.Type),
		Status:    string(l.Status),
		Address:   l.Address,
		IsDefault: l.IsDefault,
		SortOrder: l.SortOrder,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
		Version:   l.Version,
	}
}

// ToLocationResponses converts a slice of domain Locations to LocationResponses
func ToLocationResponses(locations []inventory.Location) []LocationResponse {
	responses := make([]LocationResponse, len(locations))
	for i, l := range locations {
		responses[i] = ToLocationResponse(&l)
	}
	return responses
}

// ReceiveStockRequest records goods arriving at a location.
// A nil LocationID means the tenant's default location.
type ReceiveStockRequest struct {
	LocationID *uuid.UUID      `json:"location_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`
	RecordedBy *uuid.UUID      `json:"recorded_by"`
}

// AdjustStockRequest corrects on-hand to a counted quantity
type AdjustStockRequest struct {
	LocationID  *uuid.UUID      `json:"location_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
	Reference   string          `json:"reference"`
	RecordedBy  *uuid.UUID      `json:"recorded_by"`
}

// TransferStockRequest moves stock between two locations
type TransferStockRequest struct {
	FromLocationID uuid.UUID       `json:"from_location_id"`
	ToLocationID   uuid.UUID       `json:"to_location_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reference      string          `json:"reference"`
	RecordedBy     *uuid.UUID      `json:"recorded_by"`
}

// SetReorderPointRequest sets the restock threshold for a level
type SetReorderPointRequest struct {
	LocationID   *uuid.UUID      `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
}

// ReserveStockRequest holds available stock for a placed order
type ReserveStockRequest struct {
	LocationID *uuid.UUID      `json:"location_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// ReleaseStockRequest returns reserved stock to the available balance
type ReleaseStockRequest struct {
	LocationID *uuid.UUID      `json:"location_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// DeductStockRequest removes stock from on-hand, either straight from the
// available balance or out of an existing reservation
type DeductStockRequest struct {
	LocationID *uuid.UUID      `json:"location_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`
	RecordedBy *uuid.UUID      `json:"recorded_by"`
}

// ReturnStockRequest puts returned goods back into on-hand
type ReturnStockRequest struct {
	LocationID *uuid.UUID      `json:"location_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`
	RecordedBy *uuid.UUID      `json:"recorded_by"`
}

// StockLevelResponse represents a stock level in API responses
type StockLevelResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	OnHand            decimal.Decimal `json:"on_hand"`
	Reserved          decimal.Decimal `json:"reserved"`
	Available         decimal.Decimal `json:"available"`
	ReorderPoint      decimal.Decimal `json:"reorder_point"`
	BelowReorderPoint bool            `json:"below_reorder_point"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// StockLevelListFilter represents filter options for stock level list
type StockLevelListFilter struct {
	Stocked  *bool  `json:"stocked"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir"`
}

// ToStockLevelResponse converts a domain StockLevel to StockLevelResponse
func ToStockLevelResponse(s *inventory.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ID:                s.ID,
		TenantID:          s.TenantID,
		LocationID:        s.LocationID,
		ProductID:         s.ProductID,
		OnHand:            s.OnHand,
		Reserved:          s.Reserved,
		Available:         s.Available(),
		ReorderPoint:      s.ReorderPoint,
		BelowReorderPoint: s.IsBelowReorderPoint(),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		Version:           s.Version,
	}
}

// ToStockLevelResponses converts a slice of domain StockLevels to StockLevelResponses
func ToStockLevelResponses(levels []inventory.StockLevel) []StockLevelResponse {
	responses := make([]StockLevelResponse, len(levels))
	for i, s := range levels {
		responses[i] = ToStockLevelResponse(&s)
	}
	return responses
}

// StockMovementResponse represents one ledger row in API responses
type StockMovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	StockLevelID uuid.UUID       `json:"stock_level_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Type         string          `json:"type"`
	Delta        decimal.Decimal `json:"delta"`
	Before       decimal.Decimal `json:"before"`
	After        decimal.Decimal `json:"after"`
	Reference    string          `json:"reference"`
	Reason       string          `json:"reason"`
	RecordedBy   *uuid.UUID      `json:"recorded_by"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// MovementListFilter represents filter options for the movement ledger
type MovementListFilter struct {
	Type       string     `json:"type"`
	LocationID *uuid.UUID `json:"location_id"`
	ProductID  *uuid.UUID `json:"product_id"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	OrderBy    string     `json:"order_by"`
	OrderDir   string     `json:"order_dir"`
}

// ToStockMovementResponse converts a domain StockMovement to StockMovementResponse
func ToStockMovementResponse(m *inventory.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:           m.ID,
		StockLevelID: m.StockLevelID,
		LocationID:   m.LocationID,
		ProductID:    m.ProductID,
		Type:         string(m.Type),
		Delta:        m.Delta,
		Before:       m.Before,
		After:        m.After,
		Reference:    m.Reference,
		Reason:       m.Reason,
		RecordedBy:   m.RecordedBy,
		OccurredAt:   m.OccurredAt,
	}
}

// ToStockMovementResponses converts a slice of domain StockMovements to StockMovementResponses
func ToStockMovementResponses(movements []inventory.StockMovement) []StockMovementResponse {
	responses := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		responses[i] = ToStockMovementResponse(&m)
	}
	return responses
}

// TransferResponse carries both sides of a completed transfer
type TransferResponse struct {
	From     StockLevelResponse    `json:"from"`
	To       StockLevelResponse    `json:"to"`
	Outbound StockMovementResponse `json:"outbound"`
	Inbound  StockMovementResponse `json:"inbound"`
}
