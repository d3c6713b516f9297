package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/logger"
)

// MockInvoiceRepository is a mock implementation of invoicing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByStatus(ctx context.Context, status invoicing.InvoiceStatus, filter shared.Filter) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindDueForOverdue(ctx context.Context, asOf time.Time) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) OutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) CountByStatus(ctx context.Context, status invoicing.InvoiceStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockCustomerRepository is a mock implementation of crm.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByPhone(ctx context.Context, phone string) (*crm.Customer, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Customer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindOptedIn(ctx context.Context, filter shared.Filter) ([]crm.Customer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindTopBySpend(ctx context.Context, limit int) ([]crm.Customer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *crm.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) SaveAll(ctx context.Context, customers ...*crm.Customer) error {
	args := m.Called(ctx, customers)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCategory(ctx context.Context, categoryID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, categoryID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindActive(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) ExistsByBarcode(ctx context.Context, barcode string) (bool, error) {
	args := m.Called(ctx, barcode)
	return args.Bool(0), args.Error(1)
}

// MockNumberGenerator is a mock implementation of shared.NumberGenerator
type MockNumberGenerator struct {
	mock.Mock
}

func (m *MockNumberGenerator) Next(ctx context.Context, series string) (string, error) {
	args := m.Called(ctx, series)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func newTestTenantID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestContext(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func newInvoiceService() (*InvoiceService, *MockInvoiceRepository, *MockCustomerRepository, *MockNumberGenerator) {
	invoiceRepo := new(MockInvoiceRepository)
	customerRepo := new(MockCustomerRepository)
	productRepo := new(MockProductRepository)
	numbers := new(MockNumberGenerator)
	service := NewInvoiceService(invoiceRepo, customerRepo, productRepo, numbers)
	return service, invoiceRepo, customerRepo, numbers
}

func createTestCustomer(tenantID uuid.UUID) *crm.Customer {
	customer, err := crm.NewCustomer(tenantID, "Siti Rahma", "+6281234567890")
	if err != nil {
		panic(err)
	}
	customer.ClearDomainEvents()
	return customer
}

func createIssuedInvoice(t *testing.T, tenantID uuid.UUID, total string) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewInvoice(tenantID, "INV-202608-0001", uuid.New(), "Siti Rahma")
	if err != nil {
		t.Fatal(err)
	}
	price := valueobject.MustMoney(total, valueobject.DefaultCurrency)
	if err := inv.AddLine(nil, "Consulting", decimal.NewFromInt(1), price, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if err := inv.Issue(); err != nil {
		t.Fatal(err)
	}
	inv.ClearDomainEvents()
	return inv
}

func TestInvoiceService_CreateDraft_Success(t *testing.T) {
	service, invoiceRepo, customerRepo, numbers := newInvoiceService()
	publisher := new(MockEventPublisher)
	service.SetEventPublisher(publisher)
	ctx := newTestContext(newTestTenantID())

	customer := createTestCustomer(newTestTenantID())
	price := decimal.NewFromInt(150)
	customerRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	numbers.On("Next", ctx, "INV").Return("INV-202608-0007", nil)
	invoiceRepo.On("Save", ctx, mock.AnythingOfType("*invoicing.Invoice")).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(nil)

	response, err := service.CreateDraft(ctx, CreateInvoiceRequest{
		CustomerID: customer.ID,
		Lines: []InvoiceLineRequest{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: &price},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, "INV-202608-0007", response.Number)
	assert.Equal(t, "Siti Rahma", response.CustomerName)
	assert.Equal(t, "draft", response.Status)
	assert.True(t, response.GrandTotal.Equal(decimal.NewFromInt(300)))
	invoiceRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestInvoiceService_CreateDraft_CustomerNotFound(t *testing.T) {
	service, invoiceRepo, customerRepo, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	customerID := uuid.New()
	customerRepo.On("FindByID", ctx, customerID).Return(nil, shared.ErrNotFound)

	_, err := service.CreateDraft(ctx, CreateInvoiceRequest{CustomerID: customerID})

	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CUSTOMER_NOT_FOUND", domainErr.Code)
	invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInvoiceService_Issue_PublishesEvent(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	publisher := new(MockEventPublisher)
	service.SetEventPublisher(publisher)
	ctx := newTestContext(newTestTenantID())

	inv, err := invoicing.NewInvoice(newTestTenantID(), "INV-202608-0002", uuid.New(), "Siti Rahma")
	assert.NoError(t, err)
	price := valueobject.MustMoney("50", valueobject.DefaultCurrency)
	assert.NoError(t, inv.AddLine(nil, "Delivery", decimal.NewFromInt(1), price, decimal.Zero))
	inv.ClearDomainEvents()

	invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)
	invoiceRepo.On("Save", ctx, inv).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == "InvoiceIssued"
	})).Return(nil)

	response, err := service.Issue(ctx, inv.ID)

	assert.NoError(t, err)
	assert.Equal(t, "issued", response.Status)
	publisher.AssertExpectations(t)
}

func TestInvoiceService_RecordPayment_Partial(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	inv := createIssuedInvoice(t, newTestTenantID(), "100")
	invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)
	invoiceRepo.On("Save", ctx, inv).Return(nil)

	response, err := service.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
		Method: "cash",
		Amount: decimal.NewFromInt(40),
	})

	assert.NoError(t, err)
	assert.Equal(t, "partially_paid", response.Status)
	assert.True(t, response.Outstanding.Equal(decimal.NewFromInt(60)))
}

func TestInvoiceService_RecordPayment_Overpay(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	inv := createIssuedInvoice(t, newTestTenantID(), "100")
	invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)

	_, err := service.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
		Method: "cash",
		Amount: decimal.NewFromInt(150),
	})

	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EXCEEDS_OUTSTANDING", domainErr.Code)
	invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInvoiceService_Void_AfterPaymentRejected(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	inv := createIssuedInvoice(t, newTestTenantID(), "100")
	amount := valueobject.MustMoney("30", valueobject.DefaultCurrency)
	assert.NoError(t, inv.RecordPayment(invoicing.PaymentMethodCash, amount, "", nil))
	inv.ClearDomainEvents()

	invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)

	_, err := service.Void(ctx, inv.ID, VoidInvoiceRequest{Reason: "entered twice"})

	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PAYMENT_RECORDED", domainErr.Code)
}

func TestInvoiceService_SweepOverdue(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	// Due dates cannot precede the issue date, so issue first and let the
	// clock pass the due date instead of backdating it.
	inv := createIssuedInvoice(t, newTestTenantID(), "100")
	due := time.Now().Add(10 * time.Millisecond)
	assert.NoError(t, inv.SetDueDate(&due))
	inv.ClearDomainEvents()
	time.Sleep(20 * time.Millisecond)

	asOf := time.Now()
	invoiceRepo.On("FindDueForOverdue", ctx, asOf).Return([]invoicing.Invoice{*inv}, nil)
	invoiceRepo.On("Save", ctx, mock.AnythingOfType("*invoicing.Invoice")).Return(nil)

	swept, err := service.SweepOverdue(ctx, asOf)

	assert.NoError(t, err)
	assert.Equal(t, 1, swept)
	invoiceRepo.AssertExpectations(t)
}

func TestInvoiceService_OutstandingForCustomer(t *testing.T) {
	service, invoiceRepo, _, _ := newInvoiceService()
	ctx := newTestContext(newTestTenantID())

	customerID := uuid.New()
	invoiceRepo.On("OutstandingByCustomer", ctx, customerID).Return(decimal.NewFromInt(250), nil)

	response, err := service.OutstandingForCustomer(ctx, customerID)

	assert.NoError(t, err)
	assert.True(t, response.Outstanding.Equal(decimal.NewFromInt(250)))
}
