package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// InvoiceNumberSeries is the document prefix for invoice numbers
const InvoiceNumberSeries = "INV"

// InvoiceService handles customer invoicing. Issuing publishes the event
// that queues the customer notification; the overdue sweep runs from the
// worker.
type InvoiceService struct {
	invoiceRepo    invoicing.InvoiceRepository
	customerRepo   crm.CustomerRepository
	productRepo    catalog.ProductRepository
	numbers        shared.NumberGenerator
	eventPublisher shared.EventPublisher
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	customerRepo crm.CustomerRepository,
	productRepo catalog.ProductRepository,
	numbers shared.NumberGenerator,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		numbers:      numbers,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateDraft creates a draft invoice for a customer, with any initial lines
func (s *InvoiceService) CreateDraft(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer does not exist")
		}
		return nil, err
	}

	number, err := s.numbers.Next(ctx, InvoiceNumberSeries)
	if err != nil {
		return nil, err
	}

	inv, err := invoicing.NewInvoice(tenantID, number, customer.ID, customer.Name)
	if err != nil {
		return nil, err
	}

	if req.DueDate != nil {
		if err := inv.SetDueDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.Note != "" {
		inv.SetNote(req.Note)
	}
	for _, line := range req.Lines {
		if err := s.addLine(ctx, inv, line); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// addLine resolves the billed product, when one is referenced, and appends
// the line. The catalog price and tax rate apply unless the request
// overrides them.
func (s *InvoiceService) addLine(ctx context.Context, inv *invoicing.Invoice, req InvoiceLineRequest) error {
	description := req.Description
	unitPrice := decimal.Zero
	taxRate := decimal.Zero

	if req.ProductID != nil {
		product, err := s.productRepo.FindByID(ctx, *req.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("PRODUCT_NOT_FOUND", "Billed product does not exist")
			}
			return err
		}
		if description == "" {
			description = product.Name
		}
		unitPrice = product.SellingPrice
		taxRate = product.TaxRate
	}
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	price, _ := valueobject.NewMoney(unitPrice, valueobject.DefaultCurrency)
	return inv.AddLine(req.ProductID, description, req.Quantity, price, taxRate)
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetByNumber retrieves an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListResponse, int64, error) {
	domainFilter := toDomainFilter(filter)

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceListResponses(invoices), total, nil
}

// ListByCustomer retrieves a customer's invoices
func (s *InvoiceService) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter InvoiceListFilter) ([]InvoiceListResponse, error) {
	invoices, err := s.invoiceRepo.FindByCustomer(ctx, customerID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToInvoiceListResponses(invoices), nil
}

// AddLine appends a billed line to a draft invoice
func (s *InvoiceService) AddLine(ctx context.Context, invoiceID uuid.UUID, req InvoiceLineRequest) (*InvoiceResponse, error) {
	return s.modify(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return s.addLine(ctx, inv, req)
	})
}

// RemoveLine removes a line from a draft invoice
func (s *InvoiceService) RemoveLine(ctx context.Context, invoiceID, lineID uuid.UUID) (*InvoiceResponse, error) {
	return s.modify(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return inv.RemoveLine(lineID)
	})
}

// SetDueDate sets or clears the due date on a draft or issued invoice
func (s *InvoiceService) SetDueDate(ctx context.Context, invoiceID uuid.UUID, dueDate *time.Time) (*InvoiceResponse, error) {
	return s.modify(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return inv.SetDueDate(dueDate)
	})
}

// Issue finalizes a draft and opens it for payment. The published event
// queues the customer notification.
func (s *InvoiceService) Issue(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.Issue(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// RecordPayment applies a settlement against an issued invoice. Partial
// payments accumulate; an overpayment is rejected by the aggregate.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	amount, _ := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
	if err := inv.RecordPayment(invoicing.PaymentMethod(req.Method), amount, req.Reference, req.RecordedBy); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// Void cancels an invoice that has not received any payment
func (s *InvoiceService) Void(ctx context.Context, invoiceID uuid.UUID, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.Void(req.Reason); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// OutstandingForCustomer sums the unpaid balance across the customer's open
// invoices
func (s *InvoiceService) OutstandingForCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerBalanceResponse, error) {
	outstanding, err := s.invoiceRepo.OutstandingByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &CustomerBalanceResponse{CustomerID: customerID, Outstanding: outstanding}, nil
}

// SweepOverdue marks issued and partially paid invoices overdue once their
// due date has passed. The worker runs this periodically; invoices that
// fail to transition are left for the next sweep.
func (s *InvoiceService) SweepOverdue(ctx context.Context, asOf time.Time) (int, error) {
	invoices, err := s.invoiceRepo.FindDueForOverdue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	swept := 0
	var errs []error
	for i := range invoices {
		inv := &invoices[i]
		if err := inv.MarkOverdue(asOf); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.invoiceRepo.Save(ctx, inv); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.publish(ctx, inv); err != nil {
			errs = append(errs, err)
			continue
		}
		swept++
	}

	return swept, errors.Join(errs...)
}

func (s *InvoiceService) modify(ctx context.Context, invoiceID uuid.UUID, op func(*invoicing.Invoice) error) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := op(inv); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

func (s *InvoiceService) publish(ctx context.Context, inv *invoicing.Invoice) error {
	if s.eventPublisher == nil {
		inv.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, inv.GetDomainEvents()...); err != nil {
		return err
	}
	inv.ClearDomainEvents()
	return nil
}

func toDomainFilter(filter InvoiceListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	return domainFilter
}
