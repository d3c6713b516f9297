package pos

import (
	"fmt"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the status of a sale
type SaleStatus string

const (
	SaleStatusOpen      SaleStatus = "open"      // Being rung up at the till
	SaleStatusCompleted SaleStatus = "completed" // Paid in full, stock deducted
	SaleStatusVoided    SaleStatus = "voided"    // Cancelled, stock restored if it was completed
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusOpen, SaleStatusCompleted, SaleStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusOpen:
		return target == SaleStatusCompleted || target == SaleStatusVoided
	case SaleStatusCompleted:
		return target == SaleStatusVoided
	case SaleStatusVoided:
		return false // Terminal state
	}
	return false
}

// PaymentMethod represents how a payment was tendered
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer" // Bank transfer
	PaymentMethodWallet   PaymentMethod = "wallet"   // Mobile money / e-wallet
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodWallet:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// SaleLine is one scanned item on a sale. Product name, SKU, unit price,
// and tax rate are snapshotted so later catalog edits never change a
// recorded sale.
type SaleLine struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"` // Denormalized from the sale so the row can be carried between databases on its own
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	SKU         string          `gorm:"type:varchar(50);not null"`
	Unit        string          `gorm:"type:varchar(20);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Line-level discount amount
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`  // Percentage snapshot from the product
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity*UnitPrice - Discount, before tax
}

// TableName returns the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// NewSaleLine creates a new sale line
func NewSaleLine(saleID, productID uuid.UUID, productName, sku, unit string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate decimal.Decimal) (*SaleLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}

	line := &SaleLine{
		BaseEntity:  shared.NewBaseEntity(),
		SaleID:      saleID,
		ProductID:   productID,
		ProductName: productName,
		SKU:         sku,
		Unit:        unit,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		Discount:    decimal.Zero,
		TaxRate:     taxRate,
	}
	line.recalculate()

	return line, nil
}

// UpdateQuantity updates the line quantity and recalculates totals
func (l *SaleLine) UpdateQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	l.Quantity = quantity
	l.recalculate()
	l.UpdatedAt = time.Now()

	return nil
}

// ApplyDiscount sets the line discount amount
func (l *SaleLine) ApplyDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if amount.GreaterThan(l.Quantity.Mul(l.UnitPrice)) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the line amount")
	}

	l.Discount = amount
	l.recalculate()
	l.UpdatedAt = time.Now()

	return nil
}

// recalculate derives Total and TaxAmount from the other fields
func (l *SaleLine) recalculate() {
	l.Total = l.Quantity.Mul(l.UnitPrice).Sub(l.Discount)
	if l.TaxRate.IsZero() {
		l.TaxAmount = decimal.Zero
	} else {
		l.TaxAmount = l.Total.Mul(l.TaxRate).Div(decimal.NewFromInt(100)).Round(4)
	}
}

// SalePayment is one tendered payment on a sale. A sale may be split
// across several methods.
type SalePayment struct {
	shared.BaseEntity
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method     PaymentMethod   `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reference  string          `gorm:"type:varchar(100)"` // Terminal slip, transfer ID, wallet txn
	ReceivedAt time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (SalePayment) TableName() string {
	return "sale_payments"
}

// NewSalePayment creates a new tendered payment
func NewSalePayment(saleID uuid.UUID, method PaymentMethod, amount valueobject.Money, reference string) (*SalePayment, error) {
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	return &SalePayment{
		BaseEntity: shared.NewBaseEntity(),
		SaleID:     saleID,
		Method:     method,
		Amount:     amount.Amount(),
		Reference:  reference,
		ReceivedAt: time.Now(),
	}, nil
}

// Sale is a point-of-sale transaction rung up at the till. It is the
// aggregate root for POS operations and owns its lines and payments.
type Sale struct {
	shared.TenantAggregateRoot
	Number     string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_tenant_number,priority:2"`
	CashierID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index"` // Optional, walk-ins carry none
	LocationID uuid.UUID  `gorm:"type:uuid;not null;index"`

	Lines    []SaleLine    `gorm:"foreignKey:SaleID;references:ID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID;references:ID"`

	Subtotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Sum of line totals after line discounts
	Discount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Sale-level discount
	TaxTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Subtotal - Discount + TaxTotal
	AmountPaid decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ChangeDue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Set on completion

	Status      SaleStatus `gorm:"type:varchar(20);not null;default:'open'"`
	Note        string     `gorm:"type:text"`
	CompletedAt *time.Time
	VoidedAt    *time.Time
	VoidedBy    *uuid.UUID `gorm:"type:uuid"`
	VoidReason  string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale opens a new sale at the till
func NewSale(tenantID uuid.UUID, number string, cashierID, locationID uuid.UUID) (*Sale, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot exceed 50 characters")
	}
	if cashierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CASHIER", "Cashier ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	sale := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CashierID:           cashierID,
		LocationID:          locationID,
		Lines:               make([]SaleLine, 0),
		Payments:            make([]SalePayment, 0),
		Subtotal:            decimal.Zero,
		Discount:            decimal.Zero,
		TaxTotal:            decimal.Zero,
		GrandTotal:          decimal.Zero,
		AmountPaid:          decimal.Zero,
		ChangeDue:           decimal.Zero,
		Status:              SaleStatusOpen,
	}

	sale.AddDomainEvent(NewSaleOpenedEvent(sale))

	return sale, nil
}

// SetCustomer attaches or detaches the customer on the sale
func (s *Sale) SetCustomer(customerID *uuid.UUID) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot change the customer on a closed sale")
	}

	s.CustomerID = customerID
	s.UpdatedAt = time.Now()

	return nil
}

// AddLine adds a product to the sale. Scanning a product already on the
// sale merges into the existing line by bumping its quantity.
func (s *Sale) AddLine(productID uuid.UUID, productName, sku, unit string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate decimal.Decimal) (*SaleLine, error) {
	if s.Status != SaleStatusOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to a closed sale")
	}

	for idx := range s.Lines {
		if s.Lines[idx].ProductID == productID && s.Lines[idx].UnitPrice.Equal(unitPrice.Amount()) {
			if err := s.Lines[idx].UpdateQuantity(s.Lines[idx].Quantity.Add(quantity)); err != nil {
				return nil, err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return &s.Lines[idx], nil
		}
	}

	line, err := NewSaleLine(s.ID, productID, productName, sku, unit, quantity, unitPrice, taxRate)
	if err != nil {
		return nil, err
	}
	line.TenantID = s.TenantID

	s.Lines = append(s.Lines, *line)
	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return line, nil
}

// UpdateLineQuantity updates the quantity of an existing line
func (s *Sale) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot update lines on a closed sale")
	}

	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			if err := s.Lines[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Sale line not found")
}

// RemoveLine removes a line from the sale
func (s *Sale) RemoveLine(lineID uuid.UUID) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove lines from a closed sale")
	}

	for idx, line := range s.Lines {
		if line.ID == lineID {
			s.Lines = append(s.Lines[:idx], s.Lines[idx+1:]...)
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Sale line not found")
}

// ApplyLineDiscount sets a discount on one line
func (s *Sale) ApplyLineDiscount(lineID uuid.UUID, amount decimal.Decimal) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot discount lines on a closed sale")
	}

	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			if err := s.Lines[idx].ApplyDiscount(amount); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Sale line not found")
}

// ApplyDiscount applies a sale-level discount
func (s *Sale) ApplyDiscount(discount valueobject.Money) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot discount a closed sale")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.Amount().GreaterThan(s.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the subtotal")
	}

	s.Discount = discount.Amount()
	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return nil
}

// AddPayment records a tendered payment. Sales may be split across
// several methods.
func (s *Sale) AddPayment(method PaymentMethod, amount valueobject.Money, reference string) (*SalePayment, error) {
	if s.Status != SaleStatusOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot take payment on a closed sale")
	}

	payment, err := NewSalePayment(s.ID, method, amount, reference)
	if err != nil {
		return nil, err
	}
	payment.TenantID = s.TenantID

	s.Payments = append(s.Payments, *payment)
	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return payment, nil
}

// RemovePayment removes a mistakenly entered payment while the sale is
// still open
func (s *Sale) RemovePayment(paymentID uuid.UUID) error {
	if s.Status != SaleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove payments from a closed sale")
	}

	for idx, payment := range s.Payments {
		if payment.ID == paymentID {
			s.Payments = append(s.Payments[:idx], s.Payments[idx+1:]...)
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
}

// Complete closes the sale. The tendered payments must cover the grand
// total; any cash excess becomes change due.
func (s *Sale) Complete() error {
	if !s.Status.CanTransitionTo(SaleStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete sale in %s status", s.Status))
	}
	if len(s.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot complete a sale without lines")
	}
	if s.AmountPaid.LessThan(s.GrandTotal) {
		return shared.NewDomainError("INSUFFICIENT_PAYMENT", "Tendered payments do not cover the grand total")
	}

	now := time.Now()
	s.ChangeDue = s.AmountPaid.Sub(s.GrandTotal)
	s.Status = SaleStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSaleCompletedEvent(s))

	return nil
}

// Void cancels the sale. Role checks are enforced by the caller; a voided
// completed sale triggers inventory restoration downstream.
func (s *Sale) Void(voidedBy uuid.UUID, reason string) error {
	if !s.Status.CanTransitionTo(SaleStatusVoided) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void sale in %s status", s.Status))
	}
	if voidedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Voiding user is required")
	}
	if reason == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Void reason is required")
	}

	wasCompleted := s.Status == SaleStatusCompleted
	now := time.Now()
	s.Status = SaleStatusVoided
	s.VoidedAt = &now
	s.VoidedBy = &voidedBy
	s.VoidReason = reason
	s.UpdatedAt = now

	s.AddDomainEvent(NewSaleVoidedEvent(s, wasCompleted))

	return nil
}

// SetNote sets a free-form note on the sale
func (s *Sale) SetNote(note string) {
	s.Note = note
	s.UpdatedAt = time.Now()
}

// recalculateTotals rolls the lines and payments up into the sale totals
func (s *Sale) recalculateTotals() {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, line := range s.Lines {
		subtotal = subtotal.Add(line.Total)
		taxTotal = taxTotal.Add(line.TaxAmount)
	}

	s.Subtotal = subtotal
	if s.Discount.GreaterThan(subtotal) {
		s.Discount = subtotal
	}
	s.TaxTotal = taxTotal
	s.GrandTotal = subtotal.Sub(s.Discount).Add(taxTotal)

	paid := decimal.Zero
	for _, payment := range s.Payments {
		paid = paid.Add(payment.Amount)
	}
	s.AmountPaid = paid
}

// Balance returns how much is still owed on the open sale
func (s *Sale) Balance() decimal.Decimal {
	balance := s.GrandTotal.Sub(s.AmountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsOpen returns true if the sale is still being rung up
func (s *Sale) IsOpen() bool {
	return s.Status == SaleStatusOpen
}

// IsCompleted returns true if the sale was completed
func (s *Sale) IsCompleted() bool {
	return s.Status == SaleStatusCompleted
}

// IsVoided returns true if the sale was voided
func (s *Sale) IsVoided() bool {
	return s.Status == SaleStatusVoided
}

// LineCount returns the number of lines on the sale
func (s *Sale) LineCount() int {
	return len(s.Lines)
}

// TotalQuantity returns the total quantity across all lines
func (s *Sale) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// GetLine returns a line by ID, or nil if not found
func (s *Sale) GetLine(lineID uuid.UUID) *SaleLine {
	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// GetLineByProduct returns the line for a product, or nil if not found
func (s *Sale) GetLineByProduct(productID uuid.UUID) *SaleLine {
	for idx := range s.Lines {
		if s.Lines[idx].ProductID == productID {
			return &s.Lines[idx]
		}
	}
	return nil
}
