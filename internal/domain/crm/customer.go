package crm

import (
	"regexp"
	"strings"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusMerged   CustomerStatus = "merged" // Absorbed into another customer record
)

// Customer represents a shopper known to the merchant.
// The phone number is the primary identity and is unique within a tenant;
// walk-in sales without a customer reference simply carry no customer ID.
type Customer struct {
	shared.TenantAggregateRoot
	Name          string          `gorm:"type:varchar(200);not null"`
	Phone         string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_tenant_phone,priority:2"`
	Email         string          `gorm:"type:varchar(200);index"`
	Address       string          `gorm:"type:text"`
	WhatsAppOptIn bool            `gorm:"not null;default:false"`
	LoyaltyPoints int64           `gorm:"not null;default:0"`
	CreditBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Prepaid store credit
	Notes         string          `gorm:"type:text"`
	Status        CustomerStatus  `gorm:"type:varchar(20);not null;default:'active'"`
	MergedIntoID  *uuid.UUID      `gorm:"type:uuid;index"` // Set when status is merged
	VisitCount    int64           `gorm:"not null;default:0"`
	LastVisitAt   *time.Time
	LifetimeSpend decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer
func NewCustomer(tenantID uuid.UUID, name, phone string) (*Customer, error) {
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	customer := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Phone:               normalized,
		Status:              CustomerStatusActive,
		CreditBalance:       decimal.Zero,
		LifetimeSpend:       decimal.Zero,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Update updates the customer's basic information
func (c *Customer) Update(name, email, address string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	c.Name = name
	c.Email = email
	c.Address = address
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// UpdatePhone changes the customer's phone number.
// Callers must check uniqueness within the tenant before saving.
func (c *Customer) UpdatePhone(phone string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	c.Phone = normalized
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// SetWhatsAppOptIn records the customer's messaging consent.
// Receipts and campaign messages are only sent to opted-in customers.
func (c *Customer) SetWhatsAppOptIn(optIn bool) {
	if c.WhatsAppOptIn == optIn {
		return
	}

	c.WhatsAppOptIn = optIn
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerOptInChangedEvent(c, optIn))
}

// EarnPoints credits loyalty points, typically after a completed sale
func (c *Customer) EarnPoints(points int64, reference string) error {
	if points <= 0 {
		return shared.NewDomainError("INVALID_POINTS", "Points to earn must be positive")
	}

	oldPoints := c.LoyaltyPoints
	c.LoyaltyPoints += points
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerLoyaltyChangedEvent(c, oldPoints, c.LoyaltyPoints, "earn", reference))

	return nil
}

// RedeemPoints debits loyalty points
func (c *Customer) RedeemPoints(points int64, reference string) error {
	if points <= 0 {
		return shared.NewDomainError("INVALID_POINTS", "Points to redeem must be positive")
	}
	if points > c.LoyaltyPoints {
		return shared.NewDomainError("INSUFFICIENT_POINTS", "Customer does not have enough loyalty points")
	}

	oldPoints := c.LoyaltyPoints
	c.LoyaltyPoints -= points
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerLoyaltyChangedEvent(c, oldPoints, c.LoyaltyPoints, "redeem", reference))

	return nil
}

// AddCredit adds to the customer's prepaid store credit
func (c *Customer) AddCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	oldBalance := c.CreditBalance
	c.CreditBalance = c.CreditBalance.Add(amount)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerCreditChangedEvent(c, oldBalance, c.CreditBalance, "recharge"))

	return nil
}

// DeductCredit deducts from the customer's prepaid store credit
func (c *Customer) DeductCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if c.CreditBalance.LessThan(amount) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE", "Insufficient store credit")
	}

	oldBalance := c.CreditBalance
	c.CreditBalance = c.CreditBalance.Sub(amount)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerCreditChangedEvent(c, oldBalance, c.CreditBalance, "deduction"))

	return nil
}

// RecordVisit updates visit statistics after a completed sale
func (c *Customer) RecordVisit(spend decimal.Decimal, at time.Time) error {
	if spend.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Spend cannot be negative")
	}

	c.VisitCount++
	c.LastVisitAt = &at
	c.LifetimeSpend = c.LifetimeSpend.Add(spend)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// AbsorbDuplicate folds a duplicate record's loyalty points, store credit,
// and visit statistics into this customer. The duplicate must belong to the
// same tenant and must itself be marked merged by the caller.
func (c *Customer) AbsorbDuplicate(dup *Customer) error {
	if dup == nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Duplicate customer is required")
	}
	if dup.ID == c.ID {
		return shared.NewDomainError("INVALID_MERGE", "Cannot merge a customer into itself")
	}
	if dup.TenantID != c.TenantID {
		return shared.NewDomainError("INVALID_MERGE", "Cannot merge customers across tenants")
	}
	if c.Status == CustomerStatusMerged {
		return shared.NewDomainError("INVALID_MERGE", "Target customer has already been merged away")
	}

	c.LoyaltyPoints += dup.LoyaltyPoints
	c.CreditBalance = c.CreditBalance.Add(dup.CreditBalance)
	c.VisitCount += dup.VisitCount
	c.LifetimeSpend = c.LifetimeSpend.Add(dup.LifetimeSpend)
	if dup.LastVisitAt != nil && (c.LastVisitAt == nil || dup.LastVisitAt.After(*c.LastVisitAt)) {
		c.LastVisitAt = dup.LastVisitAt
	}
	if !c.WhatsAppOptIn && dup.WhatsAppOptIn {
		c.WhatsAppOptIn = true
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomersMergedEvent(c, dup))

	return nil
}

// MarkMerged marks this customer as absorbed into another record.
// A merged customer no longer participates in sales or messaging.
func (c *Customer) MarkMerged(into uuid.UUID) error {
	if c.Status == CustomerStatusMerged {
		return shared.NewDomainError("ALREADY_MERGED", "Customer has already been merged")
	}
	if into == c.ID {
		return shared.NewDomainError("INVALID_MERGE", "Cannot merge a customer into itself")
	}

	oldStatus := c.Status
	c.Status = CustomerStatusMerged
	c.MergedIntoID = &into
	c.LoyaltyPoints = 0
	c.CreditBalance = decimal.Zero
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, oldStatus, CustomerStatusMerged))

	return nil
}

// SetNotes sets free-form notes on the customer
func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Activate activates the customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}
	if c.Status == CustomerStatusMerged {
		return shared.NewDomainError("CANNOT_ACTIVATE", "Cannot activate a merged customer")
	}

	oldStatus := c.Status
	c.Status = CustomerStatusActive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, oldStatus, CustomerStatusActive))

	return nil
}

// Deactivate deactivates the customer
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}
	if c.Status == CustomerStatusMerged {
		return shared.NewDomainError("CANNOT_DEACTIVATE", "Cannot deactivate a merged customer")
	}

	oldStatus := c.Status
	c.Status = CustomerStatusInactive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, oldStatus, CustomerStatusInactive))

	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// IsMerged returns true if the customer was merged into another record
func (c *Customer) IsMerged() bool {
	return c.Status == CustomerStatusMerged
}

// CanReceiveMessages returns true if outbound messages may be sent to this
// customer
func (c *Customer) CanReceiveMessages() bool {
	return c.Status == CustomerStatusActive && c.WhatsAppOptIn
}

var phoneChars = regexp.MustCompile(`^\+?\d{7,15}$`)

// NormalizePhone strips formatting characters and validates the result.
// Numbers are stored in the normalized form so per-tenant uniqueness holds
// regardless of how the number was typed.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// formatting, drop
		default:
			return "", shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
		}
	}

	normalized := b.String()
	if !phoneChars.MatchString(normalized) {
		return "", shared.NewDomainError("INVALID_PHONE", "Phone number must have 7 to 15 digits")
	}
	return normalized, nil
}

// validateCustomerName validates the customer name
func validateCustomerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateEmail validates an email address
func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
