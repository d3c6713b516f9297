package storefront

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// StorefrontCreatedEvent is raised when a storefront is created
type StorefrontCreatedEvent struct {
	shared.BaseDomainEvent
	StorefrontID uuid.UUID `json:"storefront_id"`
	Slug         string    `json:"slug"`
	DisplayName  string    `json:"display_name"`
}

// NewStorefrontCreatedEvent creates a new StorefrontCreatedEvent
func NewStorefrontCreatedEvent(sf *Storefront) *StorefrontCreatedEvent {
	return &StorefrontCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontCreated", "Storefront", sf.ID, sf.TenantID),
		StorefrontID:    sf.ID,
		Slug:            sf.Slug,
		DisplayName:     sf.DisplayName,
	}
}

// StorefrontUpdatedEvent is raised when storefront details change
type StorefrontUpdatedEvent struct {
	shared.BaseDomainEvent
	StorefrontID uuid.UUID `json:"storefront_id"`
	DisplayName  string    `json:"display_name"`
}

// NewStorefrontUpdatedEvent creates a new StorefrontUpdatedEvent
func NewStorefrontUpdatedEvent(sf *Storefront) *StorefrontUpdatedEvent {
	return &StorefrontUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontUpdated", "Storefront", sf.ID, sf.TenantID),
		StorefrontID:    sf.ID,
		DisplayName:     sf.DisplayName,
	}
}

// StorefrontPublishedEvent is raised when a storefront goes live
type StorefrontPublishedEvent struct {
	shared.BaseDomainEvent
	StorefrontID uuid.UUID `json:"storefront_id"`
	Slug         string    `json:"slug"`
}

// NewStorefrontPublishedEvent creates a new StorefrontPublishedEvent
func NewStorefrontPublishedEvent(sf *Storefront) *StorefrontPublishedEvent {
	return &StorefrontPublishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontPublished", "Storefront", sf.ID, sf.TenantID),
		StorefrontID:    sf.ID,
		Slug:            sf.Slug,
	}
}

// StorefrontUnpublishedEvent is raised when a storefront is taken offline
type StorefrontUnpublishedEvent struct {
	shared.BaseDomainEvent
	StorefrontID uuid.UUID `json:"storefront_id"`
	Slug         string    `json:"slug"`
}

// NewStorefrontUnpublishedEvent creates a new StorefrontUnpublishedEvent
func NewStorefrontUnpublishedEvent(sf *Storefront) *StorefrontUnpublishedEvent {
	return &StorefrontUnpublishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontUnpublished", "Storefront", sf.ID, sf.TenantID),
		StorefrontID:    sf.ID,
		Slug:            sf.Slug,
	}
}

// OrderLineInfo is a line snapshot carried on order lifecycle events so
// stock handlers work without reloading the order
type OrderLineInfo struct {
	LineID      uuid.UUID       `json:"line_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func orderLineInfos(o *StorefrontOrder) []OrderLineInfo {
	infos := make([]OrderLineInfo, 0, len(o.Lines))
	for _, line := range o.Lines {
		infos = append(infos, OrderLineInfo{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
		})
	}
	return infos
}

// StorefrontOrderPlacedEvent is raised when a shopper completes checkout
type StorefrontOrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	Number        string          `json:"number"`
	StorefrontID  uuid.UUID       `json:"storefront_id"`
	LocationID    uuid.UUID       `json:"location_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Lines         []OrderLineInfo `json:"lines"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *StorefrontOrderPlacedEvent) EventType() string {
	return "StorefrontOrderPlaced"
}

// NewStorefrontOrderPlacedEvent creates a new StorefrontOrderPlacedEvent
func NewStorefrontOrderPlacedEvent(o *StorefrontOrder) *StorefrontOrderPlacedEvent {
	return &StorefrontOrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontOrderPlaced", "StorefrontOrder", o.ID, o.TenantID),
		OrderID:         o.ID,
		Number:          o.Number,
		StorefrontID:    o.StorefrontID,
		LocationID:      o.LocationID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		Lines:           orderLineInfos(o),
		GrandTotal:      o.GrandTotal,
	}
}

// StorefrontOrderConfirmedEvent is raised when an order is accepted.
// The confirmation handler reserves stock for every line.
type StorefrontOrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	Number     string          `json:"number"`
	LocationID uuid.UUID       `json:"location_id"`
	Lines      []OrderLineInfo `json:"lines"`
}

// EventType returns the event type name
func (e *StorefrontOrderConfirmedEvent) EventType() string {
	return "StorefrontOrderConfirmed"
}

// NewStorefrontOrderConfirmedEvent creates a new StorefrontOrderConfirmedEvent
func NewStorefrontOrderConfirmedEvent(o *StorefrontOrder) *StorefrontOrderConfirmedEvent {
	return &StorefrontOrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontOrderConfirmed", "StorefrontOrder", o.ID, o.TenantID),
		OrderID:         o.ID,
		Number:          o.Number,
		LocationID:      o.LocationID,
		Lines:           orderLineInfos(o),
	}
}

// StorefrontOrderFulfilledEvent is raised when an order is handed over.
// The fulfillment handler consumes the reservation and deducts stock.
type StorefrontOrderFulfilledEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	Number        string          `json:"number"`
	LocationID    uuid.UUID       `json:"location_id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerPhone string          `json:"customer_phone"`
	Lines         []OrderLineInfo `json:"lines"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *StorefrontOrderFulfilledEvent) EventType() string {
	return "StorefrontOrderFulfilled"
}

// NewStorefrontOrderFulfilledEvent creates a new StorefrontOrderFulfilledEvent
func NewStorefrontOrderFulfilledEvent(o *StorefrontOrder) *StorefrontOrderFulfilledEvent {
	return &StorefrontOrderFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontOrderFulfilled", "StorefrontOrder", o.ID, o.TenantID),
		OrderID:         o.ID,
		Number:          o.Number,
		LocationID:      o.LocationID,
		CustomerID:      o.CustomerID,
		CustomerPhone:   o.CustomerPhone,
		Lines:           orderLineInfos(o),
		GrandTotal:      o.GrandTotal,
	}
}

// StorefrontOrderCancelledEvent is raised when an order is cancelled.
// WasConfirmed tells the handler whether a stock reservation exists and
// must be released.
type StorefrontOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	Number       string          `json:"number"`
	LocationID   uuid.UUID       `json:"location_id"`
	Lines        []OrderLineInfo `json:"lines"`
	WasConfirmed bool            `json:"was_confirmed"`
	Reason       string          `json:"reason"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *StorefrontOrderCancelledEvent) EventType() string {
	return "StorefrontOrderCancelled"
}

// NewStorefrontOrderCancelledEvent creates a new StorefrontOrderCancelledEvent
func NewStorefrontOrderCancelledEvent(o *StorefrontOrder, wasConfirmed bool) *StorefrontOrderCancelledEvent {
	cancelledAt := time.Now()
	if o.CancelledAt != nil {
		cancelledAt = *o.CancelledAt
	}
	return &StorefrontOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StorefrontOrderCancelled", "StorefrontOrder", o.ID, o.TenantID),
		OrderID:         o.ID,
		Number:          o.Number,
		LocationID:      o.LocationID,
		Lines:           orderLineInfos(o),
		WasConfirmed:    wasConfirmed,
		Reason:          o.CancelReason,
		CancelledAt:     cancelledAt,
	}
}
