package storefront

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// OrderStatus represents the lifecycle state of a storefront order
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusConfirmed, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further state change is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// CanTransitionTo validates a status transition
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPlaced:    {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusFulfilled, OrderStatusCancelled},
		OrderStatusFulfilled: {},
		OrderStatusCancelled: {},
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// OrderContact is the shopper's contact snapshot captured at checkout
type OrderContact struct {
	Name  string
	Phone string
	Email string
}

// OrderLineInput is one checkout line with catalog values snapshotted by
// the caller at intake time
type OrderLineInput struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// StorefrontOrderLine is a persisted order line
type StorefrontOrderLine struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU         string          `gorm:"type:varchar(50);not null" json:"sku"`
	Unit        string          `gorm:"type:varchar(20)" json:"unit,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
}

func (StorefrontOrderLine) TableName() string {
	return "storefront_order_lines"
}

// StorefrontOrder is an order placed through a public storefront. Lines
// are fixed at checkout; the order only moves through its lifecycle.
// Confirming reserves stock, fulfilling deducts it and cancelling a
// confirmed order releases the reservation, all through event handlers.
type StorefrontOrder struct {
	shared.TenantAggregateRoot
	Number        string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_storefront_orders_tenant_number,priority:2" json:"number"`
	StorefrontID  uuid.UUID             `gorm:"type:uuid;not null;index" json:"storefront_id"`
	LocationID    uuid.UUID             `gorm:"type:uuid;not null" json:"location_id"`
	CustomerID    *uuid.UUID            `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerName  string                `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string                `gorm:"type:varchar(50);not null;index" json:"customer_phone"`
	CustomerEmail string                `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	DeliveryNote  string                `gorm:"type:text" json:"delivery_note,omitempty"`
	Lines         []StorefrontOrderLine `gorm:"foreignKey:OrderID;references:ID" json:"lines"`
	Subtotal      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	DeliveryFee   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0" json:"delivery_fee"`
	GrandTotal    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0" json:"grand_total"`
	Status        OrderStatus           `gorm:"type:varchar(20);not null;default:'placed';index" json:"status"`
	ConfirmedAt   *time.Time            `json:"confirmed_at,omitempty"`
	FulfilledAt   *time.Time            `json:"fulfilled_at,omitempty"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason  string                `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
}

func (StorefrontOrder) TableName() string {
	return "storefront_orders"
}

// NewStorefrontOrder places an order from a storefront checkout. The
// whole order arrives at once; an order with no valid lines is rejected.
func NewStorefrontOrder(tenantID, storefrontID, locationID uuid.UUID, number string, contact OrderContact, lines []OrderLineInput) (*StorefrontOrder, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Order number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Order number cannot exceed 50 characters")
	}
	if storefrontID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOREFRONT", "Storefront ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Fulfillment location cannot be empty")
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one line")
	}

	order := &StorefrontOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		StorefrontID:        storefrontID,
		LocationID:          locationID,
		CustomerName:        strings.TrimSpace(contact.Name),
		CustomerPhone:       strings.TrimSpace(contact.Phone),
		CustomerEmail:       strings.TrimSpace(contact.Email),
		Subtotal:            decimal.Zero,
		DeliveryFee:         decimal.Zero,
		GrandTotal:          decimal.Zero,
		Status:              OrderStatusPlaced,
	}

	for _, input := range lines {
		line, err := buildOrderLine(order.ID, input)
		if err != nil {
			return nil, err
		}
		line.TenantID = tenantID
		order.Lines = append(order.Lines, *line)
	}
	order.recalculateTotals()

	order.AddDomainEvent(NewStorefrontOrderPlacedEvent(order))

	return order, nil
}

func buildOrderLine(orderID uuid.UUID, input OrderLineInput) (*StorefrontOrderLine, error) {
	if input.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Line product ID cannot be empty")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Line product name cannot be empty")
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Line unit price cannot be negative")
	}

	return &StorefrontOrderLine{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     orderID,
		ProductID:   input.ProductID,
		ProductName: strings.TrimSpace(input.ProductName),
		SKU:         input.SKU,
		Unit:        input.Unit,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		Total:       input.Quantity.Mul(input.UnitPrice),
	}, nil
}

func validateContact(contact OrderContact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return shared.NewDomainError("INVALID_CONTACT", "Customer name cannot be empty")
	}
	if strings.TrimSpace(contact.Phone) == "" {
		return shared.NewDomainError("INVALID_CONTACT", "Customer phone cannot be empty")
	}
	return nil
}

// SetDeliveryFee adjusts the delivery fee while the order awaits confirmation
func (o *StorefrontOrder) SetDeliveryFee(fee decimal.Decimal) error {
	if o.Status != OrderStatusPlaced {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change delivery fee of order in %s status", o.Status))
	}
	if fee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Delivery fee cannot be negative")
	}
	o.DeliveryFee = fee
	o.recalculateTotals()
	o.markUpdated()
	return nil
}

// SetDeliveryNote attaches delivery instructions from the shopper
func (o *StorefrontOrder) SetDeliveryNote(note string) {
	o.DeliveryNote = note
	o.markUpdated()
}

// LinkCustomer attaches the order to a CRM customer matched by phone
func (o *StorefrontOrder) LinkCustomer(customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	o.CustomerID = &customerID
	o.markUpdated()
	return nil
}

// Confirm accepts the order; stock is reserved by the confirmation handler
func (o *StorefrontOrder) Confirm() error {
	if !o.Status.CanTransitionTo(OrderStatusConfirmed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusConfirmed
	o.ConfirmedAt = &now
	o.markUpdated()

	o.AddDomainEvent(NewStorefrontOrderConfirmedEvent(o))

	return nil
}

// Fulfill hands the order over; reserved stock is deducted by the handler
func (o *StorefrontOrder) Fulfill() error {
	if !o.Status.CanTransitionTo(OrderStatusFulfilled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fulfill order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusFulfilled
	o.FulfilledAt = &now
	o.markUpdated()

	o.AddDomainEvent(NewStorefrontOrderFulfilledEvent(o))

	return nil
}

// Cancel abandons the order. For a confirmed order the cancellation
// handler releases the stock reservation.
func (o *StorefrontOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason cannot be empty")
	}

	wasConfirmed := o.Status == OrderStatusConfirmed

	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.markUpdated()

	o.AddDomainEvent(NewStorefrontOrderCancelledEvent(o, wasConfirmed))

	return nil
}

func (o *StorefrontOrder) recalculateTotals() {
	subtotal := decimal.Zero
	for i := range o.Lines {
		subtotal = subtotal.Add(o.Lines[i].Total)
	}
	o.Subtotal = subtotal
	o.GrandTotal = subtotal.Add(o.DeliveryFee)
}

func (o *StorefrontOrder) markUpdated() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}
