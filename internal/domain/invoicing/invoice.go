package invoicing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusIssued        InvoiceStatus = "issued"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further state change is possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// CanAcceptPayment returns true when payments may still be recorded
func (s InvoiceStatus) CanAcceptPayment() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartiallyPaid || s == InvoiceStatusOverdue
}

// CanTransitionTo validates a status transition
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	transitions := map[InvoiceStatus][]InvoiceStatus{
		InvoiceStatusDraft:         {InvoiceStatusIssued, InvoiceStatusVoid},
		InvoiceStatusIssued:        {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid},
		InvoiceStatusPartiallyPaid: {InvoiceStatusPaid, InvoiceStatusOverdue},
		InvoiceStatusOverdue:       {InvoiceStatusPaid, InvoiceStatusVoid},
		InvoiceStatusPaid:          {},
		InvoiceStatusVoid:          {},
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentMethod identifies how an invoice payment was settled
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodWallet   PaymentMethod = "wallet"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodWallet:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentRecord is one settlement applied against an invoice
type PaymentRecord struct {
	ID         uuid.UUID       `json:"id"`
	Method     PaymentMethod   `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	RecordedBy *uuid.UUID      `json:"recorded_by,omitempty"`
}

// PaymentRecords implements GORM Scanner/Valuer for JSONB storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *PaymentRecords) Scan(value any) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// NewPaymentRecord creates a payment record for the given settlement
func NewPaymentRecord(method PaymentMethod, amount valueobject.Money, reference string) *PaymentRecord {
	return &PaymentRecord{
		ID:         uuid.New(),
		Method:     method,
		Amount:     amount.Amount(),
		Reference:  reference,
		ReceivedAt: time.Now(),
	}
}

// InvoiceLine is a billed line on an invoice
type InvoiceLine struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid;index" json:"product_id,omitempty"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
}

func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

func (l *InvoiceLine) recalculate() {
	l.Total = l.Quantity.Mul(l.UnitPrice)
	l.TaxAmount = l.Total.Mul(l.TaxRate).Div(decimal.NewFromInt(100)).Round(4)
}

// Invoice represents a customer invoice aggregate root.
// Payments accumulate on the invoice until the outstanding balance reaches
// zero; an overpayment is never accepted.
type Invoice struct {
	shared.TenantAggregateRoot
	Number       string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_tenant_number,priority:2" json:"number"`
	CustomerID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	CustomerName string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	Lines        []InvoiceLine   `gorm:"foreignKey:InvoiceID;references:ID" json:"lines"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_total"`
	GrandTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"grand_total"`
	AmountPaid   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_paid"`
	Payments     PaymentRecords  `gorm:"type:jsonb;default:'[]'" json:"payments"`
	DueDate      *time.Time      `gorm:"index" json:"due_date,omitempty"`
	Status       InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Note         string          `gorm:"type:text" json:"note,omitempty"`
	IssuedAt     *time.Time      `json:"issued_at,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	OverdueAt    *time.Time      `json:"overdue_at,omitempty"`
	VoidedAt     *time.Time      `json:"voided_at,omitempty"`
	VoidReason   string          `gorm:"type:varchar(255)" json:"void_reason,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a draft invoice for a customer
func NewInvoice(tenantID uuid.UUID, number string, customerID uuid.UUID, customerName string) (*Invoice, error) {
	if err := validateInvoiceNumber(number); err != nil {
		return nil, err
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CustomerID:          customerID,
		CustomerName:        customerName,
		Lines:               []InvoiceLine{},
		Subtotal:            decimal.Zero,
		TaxTotal:            decimal.Zero,
		GrandTotal:          decimal.Zero,
		AmountPaid:          decimal.Zero,
		Payments:            PaymentRecords{},
		Status:              InvoiceStatusDraft,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// Outstanding returns the unpaid remainder of the grand total
func (inv *Invoice) Outstanding() decimal.Decimal {
	return inv.GrandTotal.Sub(inv.AmountPaid)
}

// IsPastDue reports whether the invoice was due before the given time
func (inv *Invoice) IsPastDue(asOf time.Time) bool {
	return inv.DueDate != nil && inv.DueDate.Before(asOf)
}

// AddLine adds a billed line to a draft invoice
func (inv *Invoice) AddLine(productID *uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate decimal.Decimal) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add lines to invoice in %s status", inv.Status))
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Line description cannot be empty")
	}
	if len(description) > 255 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Line description cannot exceed 255 characters")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be between 0 and 100")
	}

	line := InvoiceLine{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    inv.TenantID,
		InvoiceID:   inv.ID,
		ProductID:   productID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		TaxRate:     taxRate,
	}
	line.recalculate()
	inv.Lines = append(inv.Lines, line)

	inv.recalculateTotals()
	inv.markUpdated()

	return nil
}

// RemoveLine removes a line from a draft invoice
func (inv *Invoice) RemoveLine(lineID uuid.UUID) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot remove lines from invoice in %s status", inv.Status))
	}
	for i, line := range inv.Lines {
		if line.ID == lineID {
			inv.Lines = append(inv.Lines[:i], inv.Lines[i+1:]...)
			inv.recalculateTotals()
			inv.markUpdated()
			return nil
		}
	}
	return shared.NewDomainError("LINE_NOT_FOUND", "Invoice line not found")
}

// SetDueDate sets or adjusts the payment due date.
// The due date can no longer change once a payment has been recorded.
func (inv *Invoice) SetDueDate(dueDate *time.Time) error {
	if inv.Status != InvoiceStatusDraft && inv.Status != InvoiceStatusIssued {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change due date of invoice in %s status", inv.Status))
	}
	if dueDate != nil && inv.IssuedAt != nil && dueDate.Before(*inv.IssuedAt) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the issue date")
	}
	inv.DueDate = dueDate
	inv.markUpdated()
	return nil
}

// SetNote sets the free-form note on the invoice
func (inv *Invoice) SetNote(note string) {
	inv.Note = note
	inv.markUpdated()
}

// Issue finalizes a draft invoice and opens it for payment
func (inv *Invoice) Issue() error {
	if !inv.Status.CanTransitionTo(InvoiceStatusIssued) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot issue invoice in %s status", inv.Status))
	}
	if len(inv.Lines) == 0 {
		return shared.NewDomainError("EMPTY_INVOICE", "Cannot issue an invoice without lines")
	}

	now := time.Now()
	inv.Status = InvoiceStatusIssued
	inv.IssuedAt = &now
	inv.markUpdated()

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return nil
}

// RecordPayment applies a settlement against the outstanding balance.
// Partial payments are allowed; a payment exceeding the outstanding
// balance is rejected outright rather than clipped.
func (inv *Invoice) RecordPayment(method PaymentMethod, amount valueobject.Money, reference string, recordedBy *uuid.UUID) error {
	if !inv.Status.CanAcceptPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record payment on invoice in %s status", inv.Status))
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Invalid payment method: %s", method))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.Outstanding()) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment %s exceeds outstanding balance %s", amount.Amount().StringFixed(2), inv.Outstanding().StringFixed(2)))
	}

	record := NewPaymentRecord(method, amount, reference)
	record.RecordedBy = recordedBy
	inv.Payments = append(inv.Payments, *record)
	inv.AmountPaid = inv.AmountPaid.Add(amount.Amount())

	if inv.Outstanding().IsZero() {
		now := time.Now()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv, record))
	} else {
		// A partial payment on an overdue invoice leaves it overdue:
		// the balance is still past due.
		if inv.Status == InvoiceStatusIssued {
			inv.Status = InvoiceStatusPartiallyPaid
		}
		inv.AddDomainEvent(NewInvoicePaymentRecordedEvent(inv, record))
	}

	inv.markUpdated()

	return nil
}

// MarkOverdue flags an unpaid invoice whose due date has passed.
// Called by the overdue sweep; invoices without a due date are never overdue.
func (inv *Invoice) MarkOverdue(asOf time.Time) error {
	if inv.Status != InvoiceStatusIssued && inv.Status != InvoiceStatusPartiallyPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice in %s status as overdue", inv.Status))
	}
	if !inv.IsPastDue(asOf) {
		return shared.NewDomainError("NOT_PAST_DUE", "Invoice is not past its due date")
	}

	inv.Status = InvoiceStatusOverdue
	inv.OverdueAt = &asOf
	inv.markUpdated()

	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))

	return nil
}

// Void cancels an invoice that has received no payment
func (inv *Invoice) Void(reason string) error {
	if !inv.Status.CanTransitionTo(InvoiceStatusVoid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void invoice in %s status", inv.Status))
	}
	if !inv.AmountPaid.IsZero() {
		return shared.NewDomainError("PAYMENT_RECORDED", "Cannot void an invoice that has received payment")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason cannot be empty")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoid
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.markUpdated()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv))

	return nil
}

func (inv *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for i := range inv.Lines {
		inv.Lines[i].recalculate()
		subtotal = subtotal.Add(inv.Lines[i].Total)
		taxTotal = taxTotal.Add(inv.Lines[i].TaxAmount)
	}
	inv.Subtotal = subtotal
	inv.TaxTotal = taxTotal
	inv.GrandTotal = subtotal.Add(taxTotal)
}

func (inv *Invoice) markUpdated() {
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

func validateInvoiceNumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	return nil
}
