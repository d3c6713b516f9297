package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/invoicing"
)

// CreateInvoiceRequest represents a request to create a draft invoice.
// Lines may be added on creation or later, one by one.
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID            `json:"customer_id"`
	DueDate    *time.Time           `json:"due_date,omitempty"`
	Note       string               `json:"note,omitempty"`
	Lines      []InvoiceLineRequest `json:"lines,omitempty"`
}

// InvoiceLineRequest represents one billed line. Either a product reference
// or a free-form description identifies what is billed.
type InvoiceLineRequest struct {
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	Description string           `json:"description,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
}

// RecordPaymentRequest represents a request to apply a payment
type RecordPaymentRequest struct {
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy *uuid.UUID      `json:"recorded_by,omitempty"`
}

// VoidInvoiceRequest represents a request to void an unpaid invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// InvoicePaymentResponse represents a settlement in API responses
type InvoicePaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID                `json:"id"`
	TenantID     uuid.UUID                `json:"tenant_id"`
	Number       string                   `json:"number"`
	CustomerID   uuid.UUID                `json:"customer_id"`
	CustomerName string                   `json:"customer_name"`
	Lines        []InvoiceLineResponse    `json:"lines"`
	Payments     []InvoicePaymentResponse `json:"payments"`
	Subtotal     decimal.Decimal          `json:"subtotal"`
	TaxTotal     decimal.Decimal          `json:"tax_total"`
	GrandTotal   decimal.Decimal          `json:"grand_total"`
	AmountPaid   decimal.Decimal          `json:"amount_paid"`
	Outstanding  decimal.Decimal          `json:"outstanding"`
	DueDate      *time.Time               `json:"due_date,omitempty"`
	Status       string                   `json:"status"`
	Note         string                   `json:"note,omitempty"`
	IssuedAt     *time.Time               `json:"issued_at,omitempty"`
	PaidAt       *time.Time               `json:"paid_at,omitempty"`
	OverdueAt    *time.Time               `json:"overdue_at,omitempty"`
	VoidedAt     *time.Time               `json:"voided_at,omitempty"`
	VoidReason   string                   `json:"void_reason,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Version      int                      `json:"version"`
}

// InvoiceListResponse represents an invoice in list responses, lines omitted
type InvoiceListResponse struct {
	ID           uuid.UUID       `json:"id"`
	Number       string          `json:"number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// InvoiceListFilter represents filtering options for invoice lists
type InvoiceListFilter struct {
	Search     string     `json:"search,omitempty"`
	Status     string     `json:"status,omitempty"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Page       int        `json:"page,omitempty"`
	PageSize   int        `json:"page_size,omitempty"`
	OrderBy    string     `json:"order_by,omitempty"`
	OrderDir   string     `json:"order_dir,omitempty"`
}

// CustomerBalanceResponse represents a customer's open invoice balance
type CustomerBalanceResponse struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ToInvoiceResponse converts a domain invoice to a response DTO
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, len(inv.Lines))
	for i, line := range inv.Lines {
		lines[i] = InvoiceLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			TaxAmount:   line.TaxAmount,
			Total:       line.Total,
		}
	}
	payments := make([]InvoicePaymentResponse, len(inv.Payments))
	for i, payment := range inv.Payments {
		payments[i] = InvoicePaymentResponse{
			ID:         payment.ID,
			Method:     payment.Method.String(),
			Amount:     payment.Amount,
			Reference:  payment.Reference,
			ReceivedAt: payment.ReceivedAt,
		}
	}

	return InvoiceResponse{
		ID:           inv.ID,
		TenantID:     inv.TenantID,
		Number:       inv.Number,
		CustomerID:   inv.CustomerID,
		CustomerName: inv.CustomerName,
		Lines:        lines,
		Payments:     payments,
		Subtotal:     inv.Subtotal,
		TaxTotal:     inv.TaxTotal,
		GrandTotal:   inv.GrandTotal,
		AmountPaid:   inv.AmountPaid,
		Outstanding:  inv.Outstanding(),
		DueDate:      inv.DueDate,
		Status:       inv.Status.String(),
		Note:         inv.Note,
		IssuedAt:     inv.IssuedAt,
		PaidAt:       inv.PaidAt,
		OverdueAt:    inv.OverdueAt,
		VoidedAt:     inv.VoidedAt,
		VoidReason:   inv.VoidReason,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
}

// ToInvoiceListResponses converts domain invoices to list DTOs
func ToInvoiceListResponses(invoices []invoicing.Invoice) []InvoiceListResponse {
	responses := make([]InvoiceListResponse, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		responses[i] = InvoiceListResponse{
			ID:           inv.ID,
			Number:       inv.Number,
			CustomerID:   inv.CustomerID,
			CustomerName: inv.CustomerName,
			GrandTotal:   inv.GrandTotal,
			AmountPaid:   inv.AmountPaid,
			Outstanding:  inv.Outstanding(),
			DueDate:      inv.DueDate,
			Status:       inv.Status.String(),
			CreatedAt:    inv.CreatedAt,
		}
	}
	return responses
}
