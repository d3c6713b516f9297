package inventory

import (
	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeStockLevel = "StockLevel"
	AggregateTypeLocation   = "Location"
)

// Event type constants
const (
	EventTypeLocationCreated = "LocationCreated"
	EventTypeStockReceived   = "StockReceived"
	EventTypeStockDeducted   = "StockDeducted"
	EventTypeStockAdjusted   = "StockAdjusted"
	EventTypeLowStock        = "LowStock"
)

// LocationCreatedEvent is published when a new location is created
type LocationCreatedEvent struct {
	shared.BaseDomainEvent
	LocationID uuid.UUID    `json:"location_id"`
	Name       string       `json:"name"`
	Type       LocationType `json:"type"`
}

// NewLocationCreatedEvent creates a new LocationCreatedEvent
func NewLocationCreatedEvent(location *Location) *LocationCreatedEvent {
	return &LocationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationCreated, AggregateTypeLocation, location.ID, location.TenantID),
		LocationID:      location.ID,
		Name:            location.Name,
		Type:            location.Type,
	}
}

// StockReceivedEvent is published when goods are received or returned
// into stock
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	StockLevelID uuid.UUID       `json:"stock_level_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Reference    string          `json:"reference,omitempty"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(level *StockLevel, quantity decimal.Decimal, reference string) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeStockLevel, level.ID, level.TenantID),
		StockLevelID:    level.ID,
		LocationID:      level.LocationID,
		ProductID:       level.ProductID,
		Quantity:        quantity,
		OnHand:          level.OnHand,
		Reference:       reference,
	}
}

// StockDeductedEvent is published when stock is deducted by a sale or a
// fulfilled order
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	StockLevelID uuid.UUID       `json:"stock_level_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Reference    string          `json:"reference,omitempty"`
}

// NewStockDeductedEvent creates a new StockDeductedEvent
func NewStockDeductedEvent(level *StockLevel, quantity decimal.Decimal, reference string) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDeducted, AggregateTypeStockLevel, level.ID, level.TenantID),
		StockLevelID:    level.ID,
		LocationID:      level.LocationID,
		ProductID:       level.ProductID,
		Quantity:        quantity,
		OnHand:          level.OnHand,
		Reference:       reference,
	}
}

// StockAdjustedEvent is published when on-hand is corrected manually
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	StockLevelID uuid.UUID       `json:"stock_level_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Delta        decimal.Decimal `json:"delta"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Reason       string          `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(level *StockLevel, delta decimal.Decimal, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockLevel, level.ID, level.TenantID),
		StockLevelID:    level.ID,
		LocationID:      level.LocationID,
		ProductID:       level.ProductID,
		Delta:           delta,
		OnHand:          level.OnHand,
		Reason:          reason,
	}
}

// LowStockEvent is published when on-hand falls to or below the reorder
// point. Consumers surface restock alerts to the merchant.
type LowStockEvent struct {
	shared.BaseDomainEvent
	StockLevelID uuid.UUID       `json:"stock_level_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	OnHand       decimal.Decimal `json:"on_hand"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
}

// NewLowStockEvent creates a new LowStockEvent
func NewLowStockEvent(level *StockLevel) *LowStockEvent {
	return &LowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStock, AggregateTypeStockLevel, level.ID, level.TenantID),
		StockLevelID:    level.ID,
		LocationID:      level.LocationID,
		ProductID:       level.ProductID,
		OnHand:          level.OnHand,
		ReorderPoint:    level.ReorderPoint,
	}
}
