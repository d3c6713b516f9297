package inventory

import (
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockService holds inventory logic that spans more than one stock level
type StockService struct{}

// NewStockService creates a new StockService
func NewStockService() *StockService {
	return &StockService{}
}

// TransferResult carries the two ledger rows a transfer produces
type TransferResult struct {
	Outbound *StockMovement
	Inbound  *StockMovement
}

// Transfer moves stock between two levels of the same product. Both
// movements must be persisted in the same transaction as the levels.
func (s *StockService) Transfer(from, to *StockLevel, quantity decimal.Decimal, reference string) (*TransferResult, error) {
	if from == nil || to == nil {
		return nil, shared.NewDomainError("INVALID_LEVEL", "Both stock levels are required")
	}
	if from.ID == to.ID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Cannot transfer a level onto itself")
	}
	if from.TenantID != to.TenantID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Cannot transfer stock across tenants")
	}
	if from.ProductID != to.ProductID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Cannot transfer between different products")
	}
	if from.LocationID == to.LocationID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Source and destination locations are the same")
	}

	outbound, err := from.transferOut(quantity, reference)
	if err != nil {
		return nil, err
	}
	inbound, err := to.transferIn(quantity, reference)
	if err != nil {
		return nil, err
	}

	return &TransferResult{Outbound: outbound, Inbound: inbound}, nil
}
