package pos

import (
	"time"

	"github.com/retail/backend/internal/domain/pos"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenSaleRequest represents a request to open a sale at the till.
// A nil LocationID means the tenant's default location.
type OpenSaleRequest struct {
	CashierID  uuid.UUID  `json:"cashier_id"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// AddLineRequest represents a request to ring up a product. Either the
// product ID or a scanned code (barcode or SKU) identifies the product.
type AddLineRequest struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Code      string          `json:"code,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// AddPaymentRequest represents a request to record a tendered payment
type AddPaymentRequest struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// VoidSaleRequest represents a request to void a sale
type VoidSaleRequest struct {
	VoidedBy uuid.UUID `json:"voided_by"`
	Reason   string    `json:"reason"`
}

// SaleLineResponse represents a sale line in API responses
type SaleLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// SalePaymentResponse represents a tendered payment in API responses
type SalePaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID          uuid.UUID             `json:"id"`
	TenantID    uuid.UUID             `json:"tenant_id"`
	Number      string                `json:"number"`
	CashierID   uuid.UUID             `json:"cashier_id"`
	CustomerID  *uuid.UUID            `json:"customer_id,omitempty"`
	LocationID  uuid.UUID             `json:"location_id"`
	Lines       []SaleLineResponse    `json:"lines"`
	Payments    []SalePaymentResponse `json:"payments"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	Discount    decimal.Decimal       `json:"discount"`
	TaxTotal    decimal.Decimal       `json:"tax_total"`
	GrandTotal  decimal.Decimal       `json:"grand_total"`
	AmountPaid  decimal.Decimal       `json:"amount_paid"`
	ChangeDue   decimal.Decimal       `json:"change_due"`
	Balance     decimal.Decimal       `json:"balance"`
	Status      string                `json:"status"`
	Note        string                `json:"note,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	VoidedAt    *time.Time            `json:"voided_at,omitempty"`
	VoidReason  string                `json:"void_reason,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Version     int                   `json:"version"`
}

// SaleListResponse represents a sale in list responses, without lines and
// payments
type SaleListResponse struct {
	ID          uuid.UUID       `json:"id"`
	Number      string          `json:"number"`
	CashierID   uuid.UUID       `json:"cashier_id"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	LocationID  uuid.UUID       `json:"location_id"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      string          `json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleListFilter represents filtering options for sale lists
type SaleListFilter struct {
	Search     string     `json:"search,omitempty"`
	Status     string     `json:"status,omitempty"`
	CashierID  *uuid.UUID `json:"cashier_id,omitempty"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	MinTotal   *float64   `json:"min_total,omitempty"`
	MaxTotal   *float64   `json:"max_total,omitempty"`
	Page       int        `json:"page,omitempty"`
	PageSize   int        `json:"page_size,omitempty"`
	OrderBy    string     `json:"order_by,omitempty"`
	OrderDir   string     `json:"order_dir,omitempty"`
}

// SalesSummaryResponse aggregates completed sales over a period, the
// numbers a till report prints at close of day
type SalesSummaryResponse struct {
	From          time.Time                  `json:"from"`
	To            time.Time                  `json:"to"`
	SaleCount     int                        `json:"sale_count"`
	GrossTotal    decimal.Decimal            `json:"gross_total"`
	DiscountTotal decimal.Decimal            `json:"discount_total"`
	TaxTotal      decimal.Decimal            `json:"tax_total"`
	NetTotal      decimal.Decimal            `json:"net_total"`
	ByMethod      map[string]decimal.Decimal `json:"by_method"`
}

// ToSaleLineResponse converts a SaleLine to SaleLineResponse
func ToSaleLineResponse(line *pos.SaleLine) SaleLineResponse {
	return SaleLineResponse{
		ID:          line.ID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		SKU:         line.SKU,
		Unit:        line.Unit,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		Discount:    line.Discount,
		TaxRate:     line.TaxRate,
		TaxAmount:   line.TaxAmount,
		Total:       line.Total,
	}
}

// ToSalePaymentResponse converts a SalePayment to SalePaymentResponse
func ToSalePaymentResponse(payment *pos.SalePayment) SalePaymentResponse {
	return SalePaymentResponse{
		ID:         payment.ID,
		Method:     payment.Method.String(),
		Amount:     payment.Amount,
		Reference:  payment.Reference,
		ReceivedAt: payment.ReceivedAt,
	}
}

// ToSaleResponse converts a Sale to SaleResponse
func ToSaleResponse(sale *pos.Sale) SaleResponse {
	lines := make([]SaleLineResponse, len(sale.Lines))
	for i := range sale.Lines {
		lines[i] = ToSaleLineResponse(&sale.Lines[i])
	}
	payments := make([]SalePaymentResponse, len(sale.Payments))
	for i := range sale.Payments {
		payments[i] = ToSalePaymentResponse(&sale.Payments[i])
	}

	return SaleResponse{
		ID:          sale.ID,
		TenantID:    sale.TenantID,
		Number:      sale.Number,
		CashierID:   sale.CashierID,
		CustomerID:  sale.CustomerID,
		LocationID:  sale.LocationID,
		Lines:       lines,
		Payments:    payments,
		Subtotal:    sale.Subtotal,
		Discount:    sale.Discount,
		TaxTotal:    sale.TaxTotal,
		GrandTotal:  sale.GrandTotal,
		AmountPaid:  sale.AmountPaid,
		ChangeDue:   sale.ChangeDue,
		Balance:     sale.Balance(),
		Status:      sale.Status.String(),
		Note:        sale.Note,
		CompletedAt: sale.CompletedAt,
		VoidedAt:    sale.VoidedAt,
		VoidReason:  sale.VoidReason,
		CreatedAt:   sale.CreatedAt,
		UpdatedAt:   sale.UpdatedAt,
		Version:     sale.Version,
	}
}

// ToSaleListResponses converts a slice of Sales to SaleListResponses
func ToSaleListResponses(sales []pos.Sale) []SaleListResponse {
	responses := make([]SaleListResponse, len(sales))
	for i, sale := range sales {
		responses[i] = SaleListResponse{
			ID:          sale.ID,
			Number:      sale.Number,
			CashierID:   sale.CashierID,
			CustomerID:  sale.CustomerID,
			LocationID:  sale.LocationID,
			GrandTotal:  sale.GrandTotal,
			AmountPaid:  sale.AmountPaid,
			Status:      sale.Status.String(),
			CompletedAt: sale.CompletedAt,
			CreatedAt:   sale.CreatedAt,
		}
	}
	return responses
}
