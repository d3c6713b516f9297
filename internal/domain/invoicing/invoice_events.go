package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID `json:"invoice_id"`
	Number       string    `json:"number"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
	}
}

// InvoiceIssuedEvent is raised when a draft invoice is issued to the customer
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	Number       string          `json:"number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	IssuedAt     time.Time       `json:"issued_at"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return "InvoiceIssued"
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	issuedAt := time.Now()
	if inv.IssuedAt != nil {
		issuedAt = *inv.IssuedAt
	}
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceIssued", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		GrandTotal:      inv.GrandTotal,
		DueDate:         inv.DueDate,
		IssuedAt:        issuedAt,
	}
}

// InvoicePaymentRecordedEvent is raised when a partial payment is applied
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Number        string          `json:"number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Method        PaymentMethod   `json:"method"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// EventType returns the event type name
func (e *InvoicePaymentRecordedEvent) EventType() string {
	return "InvoicePaymentRecorded"
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(inv *Invoice, record *PaymentRecord) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaymentRecorded", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		Method:          record.Method,
		PaymentAmount:   record.Amount,
		AmountPaid:      inv.AmountPaid,
		Outstanding:     inv.Outstanding(),
	}
}

// InvoicePaidEvent is raised when the outstanding balance reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Number        string          `json:"number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Method        PaymentMethod   `json:"method"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, record *PaymentRecord) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		Method:          record.Method,
		PaymentAmount:   record.Amount,
		GrandTotal:      inv.GrandTotal,
		PaidAt:          paidAt,
	}
}

// InvoiceOverdueEvent is raised when the overdue sweep flags an unpaid invoice
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	Number       string          `json:"number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// EventType returns the event type name
func (e *InvoiceOverdueEvent) EventType() string {
	return "InvoiceOverdue"
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceOverdue", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		Outstanding:     inv.Outstanding(),
		DueDate:         inv.DueDate,
	}
}

// InvoiceVoidedEvent is raised when an unpaid invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID `json:"invoice_id"`
	Number     string    `json:"number"`
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
	VoidedAt   time.Time `json:"voided_at"`
}

// EventType returns the event type name
func (e *InvoiceVoidedEvent) EventType() string {
	return "InvoiceVoided"
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice) *InvoiceVoidedEvent {
	voidedAt := time.Now()
	if inv.VoidedAt != nil {
		voidedAt = *inv.VoidedAt
	}
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceVoided", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		Reason:          inv.VoidReason,
		VoidedAt:        voidedAt,
	}
}
