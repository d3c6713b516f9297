package inventory

import (
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevel tracks one product's stock at one location. It is the
// aggregate root for inventory operations; the composite identity is
// LocationID + ProductID.
//
// Invariants: on-hand never goes negative, reserved never exceeds on-hand,
// and every on-hand change produces exactly one StockMovement. Reserving
// and releasing only shift quantity between available and reserved, so they
// do not write movements.
type StockLevel struct {
	shared.TenantAggregateRoot
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_location_product,priority:2"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_location_product,priority:3"`
	OnHand       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reserved     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Held for placed storefront orders
	ReorderPoint decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Restock threshold, zero disables alerts
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel creates an empty stock level for a location-product pair
func NewStockLevel(tenantID, locationID, productID uuid.UUID) (*StockLevel, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}

	return &StockLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		LocationID:          locationID,
		ProductID:           productID,
		OnHand:              decimal.Zero,
		Reserved:            decimal.Zero,
		ReorderPoint:        decimal.Zero,
	}, nil
}

// Available returns the quantity free to sell (on-hand minus reserved)
func (s *StockLevel) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Reserved)
}

// Receive adds received goods to on-hand and returns the ledger movement
func (s *StockLevel) Receive(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Receive quantity must be positive")
	}

	movement := s.apply(MovementTypeReceive, quantity, reference, "")
	s.AddDomainEvent(NewStockReceivedEvent(s, quantity, reference))

	return movement, nil
}

// DeductForSale removes sold goods from on-hand. The quantity must be
// covered by the available (unreserved) balance.
func (s *StockLevel) DeductForSale(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Sale quantity must be positive")
	}
	if s.Available().LessThan(quantity) {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock")
	}

	wasAbove := !s.isBelowReorderPoint()
	movement := s.apply(MovementTypeSale, quantity.Neg(), reference, "")
	s.AddDomainEvent(NewStockDeductedEvent(s, quantity, reference))
	if wasAbove && s.isBelowReorderPoint() {
		s.AddDomainEvent(NewLowStockEvent(s))
	}

	return movement, nil
}

// ReturnFromSale puts returned goods back into on-hand
func (s *StockLevel) ReturnFromSale(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
	}

	movement := s.apply(MovementTypeReturn, quantity, reference, "")
	s.AddDomainEvent(NewStockReceivedEvent(s, quantity, reference))

	return movement, nil
}

// Adjust sets on-hand to a counted quantity. A reason is required, and the
// new quantity cannot cut into stock already reserved for orders.
func (s *StockLevel) Adjust(newQuantity decimal.Decimal, reason, reference string) (*StockMovement, error) {
	if reason == "" {
		return nil, shared.NewDomainError("REASON_REQUIRED", "Adjustment reason is required")
	}
	if newQuantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "On-hand quantity cannot be negative")
	}
	if newQuantity.LessThan(s.Reserved) {
		return nil, shared.NewDomainError("RESERVED_EXCEEDED", "Cannot adjust on-hand below the reserved quantity")
	}

	delta := newQuantity.Sub(s.OnHand)
	if delta.IsZero() {
		return nil, shared.NewDomainError("NO_CHANGE", "Adjustment does not change the quantity")
	}

	movement := s.apply(MovementTypeAdjustment, delta, reference, reason)
	s.AddDomainEvent(NewStockAdjustedEvent(s, delta, reason))
	if s.isBelowReorderPoint() {
		s.AddDomainEvent(NewLowStockEvent(s))
	}

	return movement, nil
}

// Reserve holds available stock for a placed order. No movement is written;
// on-hand is unchanged.
func (s *StockLevel) Reserve(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if s.Available().LessThan(quantity) {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock to reserve")
	}

	s.Reserved = s.Reserved.Add(quantity)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// Release returns reserved stock to the available balance, typically when
// an order is cancelled
func (s *StockLevel) Release(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if s.Reserved.LessThan(quantity) {
		return shared.NewDomainError("RESERVED_EXCEEDED", "Cannot release more than is reserved")
	}

	s.Reserved = s.Reserved.Sub(quantity)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

/// DeductReserved consumes a reservation when the order ships: on-hand and
// reserved both drop by the quantity.
func (s *StockLevel) DeductReserved(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Deduct quantity must be positive")
	}
	if s.Reserved.LessThan(quantity) {
		return nil, shared.NewDomainError("RESERVED_EXCEEDED", "Cannot deduct more than is reserved")
	}

	s.Reserved = s.Reserved.Sub(quantity)
	wasAbove := !s.isBelowReorderPoint()
	movement := s.apply(MovementTypeSale, quantity.Neg(), reference, "")
	s.AddDomainEvent(NewStockDeductedEvent(s, quantity, reference))
	if wasAbove && s.isBelowReorderPoint() {
		s.AddDomainEvent(NewLowStockEvent(s))
	}

	return movement, nil
}

// SetReorderPoint sets the restock threshold. Zero disables low-stock
// alerts for this level.
func (s *StockLevel) SetReorderPoint(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reorder point cannot be negative")
	}

	s.ReorderPoint = quantity
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// IsBelowReorderPoint returns true if on-hand has fallen to or below the
// reorder point
func (s *StockLevel) IsBelowReorderPoint() bool {
	return s.isBelowReorderPoint()
}

func (s *StockLevel) isBelowReorderPoint() bool {
	if s.ReorderPoint.IsZero() {
		return false
	}
	return s.OnHand.LessThanOrEqual(s.ReorderPoint)
}

// CanFulfill returns true if the available balance covers the quantity
func (s *StockLevel) CanFulfill(quantity decimal.Decimal) bool {
	return s.Available().GreaterThanOrEqual(quantity)
}

// transferOut moves stock out toward another location
func (s *StockLevel) transferOut(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}
	if s.Available().LessThan(quantity) {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock to transfer")
	}

	return s.apply(MovementTypeTransfer, quantity.Neg(), reference, ""), nil
}

// transferIn accepts stock arriving from another location
func (s *StockLevel) transferIn(quantity decimal.Decimal, reference string) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}

	return s.apply(MovementTypeTransfer, quantity, reference, ""), nil
}

// apply mutates on-hand and builds the matching ledger row
func (s *StockLevel) apply(movementType MovementType, delta decimal.Decimal, reference, reason string) *StockMovement {
	before := s.OnHand
	s.OnHand = s.OnHand.Add(delta)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return &StockMovement{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     s.TenantID,
		StockLevelID: s.ID,
		LocationID:   s.LocationID,
		ProductID:    s.ProductID,
		Type:         movementType,
		Delta:        delta,
		Before:       before,
		After:        s.OnHand,
		Reference:    reference,
		Reason:       reason,
		OccurredAt:   time.Now(),
	}
}
