package crm

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestSaleCompletedEvent(customerID *uuid.UUID) *pos.SaleCompletedEvent {
	return &pos.SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(pos.EventTypeSaleCompleted, pos.AggregateTypeSale, uuid.New(), newTestTenantID()),
		SaleID:          uuid.New(),
		Number:          "SAL-202608-0007",
		CashierID:       uuid.MustParse("66666666-6666-6666-6666-666666666666"),
		LocationID:      uuid.New(),
		GrandTotal:      decimal.NewFromFloat(45.5),
		AmountPaid:      decimal.NewFromInt(50),
		ChangeDue:       decimal.NewFromFloat(4.5),
		CustomerID:      customerID,
	}
}

func TestSaleCompletedHandler_EventTypes(t *testing.T) {
	handler := NewSaleCompletedHandler(nil, newTestLogger())

	assert.Equal(t, []string{pos.EventTypeSaleCompleted}, handler.EventTypes())
}

func TestSaleCompletedHandler_RecordsVisitAndPoints(t *testing.T) {
	service, customerRepo, _ := newCustomerService()
	handler := NewSaleCompletedHandler(service, newTestLogger())
	customer := createTestCustomer(newTestTenantID(), "Siti Rahma", "+6281234567890")

	event := newTestSaleCompletedEvent(&customer.ID)

	customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	customerRepo.On("Save", mock.Anything, customer).Return(nil)

	err := handler.Handle(newTestContext(newTestTenantID()), event)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), customer.VisitCount)
	assert.True(t, customer.LifetimeSpend.Equal(decimal.NewFromFloat(45.5)))
	assert.Equal(t, int64(45), customer.LoyaltyPoints)
	customerRepo.AssertExpectations(t)
}

func TestSaleCompletedHandler_SkipsWalkInSale(t *testing.T) {
	service, customerRepo, _ := newCustomerService()
	handler := NewSaleCompletedHandler(service, newTestLogger())

	err := handler.Handle(newTestContext(newTestTenantID()), newTestSaleCompletedEvent(nil))

	assert.NoError(t, err)
	customerRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSaleCompletedHandler_WrongEventType(t *testing.T) {
	service, _, _ := newCustomerService()
	handler := NewSaleCompletedHandler(service, newTestLogger())

	event := shared.NewBaseDomainEvent("SomethingElse", "Thing", uuid.New(), newTestTenantID())
	err := handler.Handle(newTestContext(newTestTenantID()), &event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected event type")
}

func TestSaleCompletedHandler_CustomerMissing(t *testing.T) {
	service, customerRepo, _ := newCustomerService()
	handler := NewSaleCompletedHandler(service, newTestLogger())
	customerID := newTestCustomerID()

	event := newTestSaleCompletedEvent(&customerID)
	customerRepo.On("FindByID", mock.Anything, customerID).Return(nil, shared.ErrNotFound)

	err := handler.Handle(newTestContext(newTestTenantID()), event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record customer visit")
}
