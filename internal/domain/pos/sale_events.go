package pos

import (
	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleOpened    = "SaleOpened"
	EventTypeSaleCompleted = "SaleCompleted"
	EventTypeSaleVoided    = "SaleVoided"
)

// SaleOpenedEvent is raised when a new sale is opened at the till
type SaleOpenedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	Number     string    `json:"number"`
	CashierID  uuid.UUID `json:"cashier_id"`
	LocationID uuid.UUID `json:"location_id"`
}

// NewSaleOpenedEvent creates a new SaleOpenedEvent
func NewSaleOpenedEvent(sale *Sale) *SaleOpenedEvent {
	return &SaleOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleOpened, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		Number:          sale.Number,
		CashierID:       sale.CashierID,
		LocationID:      sale.LocationID,
	}
}

// EventType returns the event type name
func (e *SaleOpenedEvent) EventType() string {
	return EventTypeSaleOpened
}

// SaleLineInfo carries line details inside sale events so consumers never
// have to reload the aggregate
type SaleLineInfo struct {
	LineID      uuid.UUID       `json:"line_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// saleLineInfos snapshots the sale's lines for an event payload
func saleLineInfos(sale *Sale) []SaleLineInfo {
	lines := make([]SaleLineInfo, len(sale.Lines))
	for i, line := range sale.Lines {
		lines[i] = SaleLineInfo{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
		}
	}
	return lines
}

// SaleCompletedEvent is raised when a sale is paid and closed.
// It drives inventory deduction, customer visit/loyalty updates, and the
// receipt notification.
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID       `json:"sale_id"`
	Number     string          `json:"number"`
	CashierID  uuid.UUID       `json:"cashier_id"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	LocationID uuid.UUID       `json:"location_id"`
	Lines      []SaleLineInfo  `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	ChangeDue  decimal.Decimal `json:"change_due"`
}

// NewSaleCompletedEvent creates a new SaleCompletedEvent
func NewSaleCompletedEvent(sale *Sale) *SaleCompletedEvent {
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		Number:          sale.Number,
		CashierID:       sale.CashierID,
		CustomerID:      sale.CustomerID,
		LocationID:      sale.LocationID,
		Lines:           saleLineInfos(sale),
		Subtotal:        sale.Subtotal,
		Discount:        sale.Discount,
		TaxTotal:        sale.TaxTotal,
		GrandTotal:      sale.GrandTotal,
		AmountPaid:      sale.AmountPaid,
		ChangeDue:       sale.ChangeDue,
	}
}

// EventType returns the event type name
func (e *SaleCompletedEvent) EventType() string {
	return EventTypeSaleCompleted
}

// SaleVoidedEvent is raised when a sale is voided. WasCompleted tells
// consumers whether stock had been deducted and must be restored.
type SaleVoidedEvent struct {
	shared.BaseDomainEvent
	SaleID       uuid.UUID      `json:"sale_id"`
	Number       string         `json:"number"`
	LocationID   uuid.UUID      `json:"location_id"`
	CustomerID   *uuid.UUID     `json:"customer_id,omitempty"`
	Lines        []SaleLineInfo `json:"lines"`
	WasCompleted bool           `json:"was_completed"`
	VoidedBy     uuid.UUID      `json:"voided_by"`
	Reason       string         `json:"reason"`
}

// NewSaleVoidedEvent creates a new SaleVoidedEvent
func NewSaleVoidedEvent(sale *Sale, wasCompleted bool) *SaleVoidedEvent {
	var voidedBy uuid.UUID
	if sale.VoidedBy != nil {
		voidedBy = *sale.VoidedBy
	}
	return &SaleVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleVoided, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		Number:          sale.Number,
		LocationID:      sale.LocationID,
		CustomerID:      sale.CustomerID,
		Lines:           saleLineInfos(sale),
		WasCompleted:    wasCompleted,
		VoidedBy:        voidedBy,
		Reason:          sale.VoidReason,
	}
}

// EventType returns the event type name
func (e *SaleVoidedEvent) EventType() string {
	return EventTypeSaleVoided
}
