package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/crm"
)

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	WhatsAppOptIn bool   `json:"whatsapp_opt_in"`
	Notes         string `json:"notes"`
}

// UpdateCustomerRequest represents a request to update a customer's details.
// Nil fields keep their current value.
type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// LoyaltyRequest represents a request to earn or redeem loyalty points
type LoyaltyRequest struct {
	Points    int64  `json:"points" binding:"required"`
	Reference string `json:"reference"`
}

// CreditRequest represents a request to add or deduct store credit
type CreditRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// MergeCustomersRequest names two duplicate customer records to merge.
// The older record survives regardless of the order given here.
type MergeCustomersRequest struct {
	CustomerID  uuid.UUID `json:"customer_id" binding:"required"`
	DuplicateID uuid.UUID `json:"duplicate_id" binding:"required"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address,omitempty"`
	WhatsAppOptIn bool            `json:"whatsapp_opt_in"`
	LoyaltyPoints int64           `json:"loyalty_points"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	Notes         string          `json:"notes,omitempty"`
	Status        string          `json:"status"`
	MergedIntoID  *uuid.UUID      `json:"merged_into_id,omitempty"`
	VisitCount    int64           `json:"visit_count"`
	LastVisitAt   *time.Time      `json:"last_visit_at,omitempty"`
	LifetimeSpend decimal.Decimal `json:"lifetime_spend"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// MergeCustomersResponse reports the outcome of a duplicate merge
type MergeCustomersResponse struct {
	Survivor   CustomerResponse `json:"survivor"`
	MergedID   uuid.UUID        `json:"merged_id"`
	SalesMoved int64            `json:"sales_moved"`
}

// CustomerListFilter represents filtering options for customer queries
type CustomerListFilter struct {
	Search           string `json:"search"`
	Status           string `json:"status"`
	OptedIn          *bool  `json:"opted_in"`
	MinLoyaltyPoints *int64 `json:"min_loyalty_points"`
	HasCredit        *bool  `json:"has_credit"`
	Page             int    `json:"page"`
	PageSize         int    `json:"page_size"`
	OrderBy          string `json:"order_by"`
	OrderDir         string `json:"order_dir"`
}

// ToCustomerResponse converts a domain customer to a response DTO
func ToCustomerResponse(customer *crm.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            customer.ID,
		TenantID:      customer.TenantID,
		Name:          customer.Name,
		Phone:         customer.Phone,
		Email:         customer.Email,
		Address:       customer.Address,
		WhatsAppOptIn: customer.WhatsAppOptIn,
		LoyaltyPoints: customer.LoyaltyPoints,
		CreditBalance: customer.CreditBalance,
		Notes:         customer.Notes,
		Status:        string(customer.Status),
		MergedIntoID:  customer.MergedIntoID,
		VisitCount:    customer.VisitCount,
		LastVisitAt:   customer.LastVisitAt,
		LifetimeSpend: customer.LifetimeSpend,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
		Version:       customer.Version,
	}
}

// ToCustomerResponses converts a slice of domain customers to response DTOs
func ToCustomerResponses(customers []crm.Customer) []CustomerResponse {
	responses := make([]CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}
	return responses
}
