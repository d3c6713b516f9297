package crm

import (
	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated        = "CustomerCreated"
	EventTypeCustomerUpdated        = "CustomerUpdated"
	EventTypeCustomerStatusChanged  = "CustomerStatusChanged"
	EventTypeCustomerOptInChanged   = "CustomerOptInChanged"
	EventTypeCustomerLoyaltyChanged = "CustomerLoyaltyChanged"
	EventTypeCustomerCreditChanged  = "CustomerCreditChanged"
	EventTypeCustomersMerged        = "CustomersMerged"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		Name:            customer.Name,
		Phone:           customer.Phone,
	}
}

// CustomerUpdatedEvent is published when a customer's details change
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(customer *Customer) *CustomerUpdatedEvent {
	return &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerUpdated, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		Name:            customer.Name,
		Phone:           customer.Phone,
		Email:           customer.Email,
	}
}

// CustomerStatusChangedEvent is published when a customer's status changes
type CustomerStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID      `json:"customer_id"`
	OldStatus  CustomerStatus `json:"old_status"`
	NewStatus  CustomerStatus `json:"new_status"`
}

// NewCustomerStatusChangedEvent creates a new CustomerStatusChangedEvent
func NewCustomerStatusChangedEvent(customer *Customer, oldStatus, newStatus CustomerStatus) *CustomerStatusChangedEvent {
	return &CustomerStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerStatusChanged, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// CustomerOptInChangedEvent is published when messaging consent changes.
// Channel consumers use it to start or stop sending to the customer.
type CustomerOptInChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Phone      string    `json:"phone"`
	OptedIn    bool      `json:"opted_in"`
}

// NewCustomerOptInChangedEvent creates a new CustomerOptInChangedEvent
func NewCustomerOptInChangedEvent(customer *Customer, optedIn bool) *CustomerOptInChangedEvent {
	return &CustomerOptInChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerOptInChanged, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		Phone:           customer.Phone,
		OptedIn:         optedIn,
	}
}

// CustomerLoyaltyChangedEvent is published when loyalty points are earned
// or redeemed
type CustomerLoyaltyChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	OldPoints  int64     `json:"old_points"`
	NewPoints  int64     `json:"new_points"`
	Kind       string    `json:"kind"` // "earn" or "redeem"
	Reference  string    `json:"reference,omitempty"`
}

// NewCustomerLoyaltyChangedEvent creates a new CustomerLoyaltyChangedEvent
func NewCustomerLoyaltyChangedEvent(customer *Customer, oldPoints, newPoints int64, kind, reference string) *CustomerLoyaltyChangedEvent {
	return &CustomerLoyaltyChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerLoyaltyChanged, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		OldPoints:       oldPoints,
		NewPoints:       newPoints,
		Kind:            kind,
		Reference:       reference,
	}
}

// CustomerCreditChangedEvent is published when the prepaid store credit
// balance changes
type CustomerCreditChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reason     string          `json:"reason"` // "recharge" or "deduction"
}

// NewCustomerCreditChangedEvent creates a new CustomerCreditChangedEvent
func NewCustomerCreditChangedEvent(customer *Customer, oldBalance, newBalance decimal.Decimal, reason string) *CustomerCreditChangedEvent {
	return &CustomerCreditChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreditChanged, AggregateTypeCustomer, customer.ID, customer.TenantID),
		CustomerID:      customer.ID,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
		Reason:          reason,
	}
}

// CustomersMergedEvent is published on the surviving customer when a
// duplicate is folded into it
type CustomersMergedEvent struct {
	shared.BaseDomainEvent
	SurvivorID  uuid.UUID `json:"survivor_id"`
	DuplicateID uuid.UUID `json:"duplicate_id"`
	Phone       string    `json:"phone"`
}

// NewCustomersMergedEvent creates a new CustomersMergedEvent
func NewCustomersMergedEvent(survivor, duplicate *Customer) *CustomersMergedEvent {
	return &CustomersMergedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomersMerged, AggregateTypeCustomer, survivor.ID, survivor.TenantID),
		SurvivorID:      survivor.ID,
		DuplicateID:     duplicate.ID,
		Phone:           survivor.Phone,
	}
}
