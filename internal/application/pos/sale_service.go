package pos

import (
	"context"
	"errors"
	"time"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleNumberSeries is the document prefix for sale numbers
const SaleNumberSeries = "SAL"

// SaleService handles till operations. Completing and voiding publish the
// events that drive stock deduction, customer stats, and receipt
// notifications downstream.
type SaleService struct {
	saleRepo       pos.SaleRepository
	productRepo    catalog.ProductRepository
	locationRepo   inventory.LocationRepository
	numbers        shared.NumberGenerator
	eventPublisher shared.EventPublisher
}

// NewSaleService creates a new SaleService
func NewSaleService(
	saleRepo pos.SaleRepository,
	productRepo catalog.ProductRepository,
	locationRepo inventory.LocationRepository,
	numbers shared.NumberGenerator,
) *SaleService {
	return &SaleService{
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		numbers:      numbers,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Open opens a new sale at the till
func (s *SaleService) Open(ctx context.Context, req OpenSaleRequest) (*SaleResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	locationID, err := s.resolveLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, SaleNumberSeries)
	if err != nil {
		return nil, err
	}

	sale, err := pos.NewSale(tenantID, number, req.CashierID, locationID)
	if err != nil {
		return nil, err
	}

	if req.CustomerID != nil {
		if err := sale.SetCustomer(req.CustomerID); err != nil {
			return nil, err
		}
	}
	if req.Note != "" {
		sale.SetNote(req.Note)
	}

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, sale.GetDomainEvents()...); err != nil {
			return nil, err
		}
		sale.ClearDomainEvents()
	}

	response := ToSaleResponse(sale)
	return &response, nil
}

func (s *SaleService) resolveLocation(ctx context.Context, locationID *uuid.UUID) (uuid.UUID, error) {
	if locationID != nil {
		return *locationID, nil
	}
	location, err := s.locationRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.NewDomainError("NO_DEFAULT_LOCATION", "Tenant has no default location")
		}
		return uuid.Nil, err
	}
	return location.ID, nil
}

// GetByID retrieves a sale by ID
func (s *SaleService) GetByID(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToSaleResponse(sale)
	return &response, nil
}

// GetByNumber retrieves a sale by its number
func (s *SaleService) GetByNumber(ctx context.Context, number string) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToSaleResponse(sale)
	return &response, nil
}

// List retrieves sales with filtering and pagination
func (s *SaleService) List(ctx context.Context, filter SaleListFilter) ([]SaleListResponse, int64, error) {
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
	if filter.CashierID != nil {
		domainFilter.Filters["cashier_id"] = *filter.CashierID
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.LocationID != nil {
		domainFilter.Filters["location_id"] = *filter.LocationID
	}
	if filter.MinTotal != nil {
		domainFilter.Filters["min_total"] = *filter.MinTotal
	}
	if filter.MaxTotal != nil {
		domainFilter.Filters["max_total"] = *filter.MaxTotal
	}

	sales, err := s.saleRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.saleRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToSaleListResponses(sales), total, nil
}

// AddLine rings a product up on an open sale. The product comes either
// from its ID or from a scanned code, barcode first, SKU as fallback.
func (s *SaleService) AddLine(ctx context.Context, saleID uuid.UUID, req AddLineRequest) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	product, err := s.resolveProduct(ctx, req)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_NOT_SELLABLE", "Product is not active and cannot be sold")
	}

	price, _ := valueobject.NewMoney(product.SellingPrice, valueobject.DefaultCurrency)
	if _, err := sale.AddLine(product.ID, product.Name, product.SKU, product.Unit, req.Quantity, price, product.TaxRate); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	response := ToSaleResponse(sale)
	return &response, nil
}

func (s *SaleService) resolveProduct(ctx context.Context, req AddLineRequest) (*catalog.Product, error) {
	if req.ProductID != nil {
		return s.productRepo.FindByID(ctx, *req.ProductID)
	}
	if req.Code == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Either a product ID or a code is required")
	}

	product, err := s.productRepo.FindByBarcode(ctx, req.Code)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return s.productRepo.FindBySKU(ctx, req.Code)
}

// UpdateLineQuantity changes the quantity of a line on an open sale
func (s *SaleService) UpdateLineQuantity(ctx context.Context, saleID, lineID uuid.UUID, quantity decimal.Decimal) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		return sale.UpdateLineQuantity(lineID, quantity)
	})
}

// RemoveLine removes a line from an open sale
func (s *SaleService) RemoveLine(ctx context.Context, saleID, lineID uuid.UUID) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		return sale.RemoveLine(lineID)
	})
}

// ApplyLineDiscount sets a discount amount on one line
func (s *SaleService) ApplyLineDiscount(ctx context.Context, saleID, lineID uuid.UUID, amount decimal.Decimal) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		return sale.ApplyLineDiscount(lineID, amount)
	})
}

// ApplyDiscount sets the sale-level discount
func (s *SaleService) ApplyDiscount(ctx context.Context, saleID uuid.UUID, amount decimal.Decimal) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		discount, _ := valueobject.NewMoney(amount, valueobject.DefaultCurrency)
		return sale.ApplyDiscount(discount)
	})
}

// SetCustomer attaches or detaches the customer on an open sale
func (s *SaleService) SetCustomer(ctx context.Context, saleID uuid.UUID, customerID *uuid.UUID) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		return sale.SetCustomer(customerID)
	})
}

// AddPayment records a tendered payment on an open sale
func (s *SaleService) AddPayment(ctx context.Context, saleID uuid.UUID, req AddPaymentRequest) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		amount, _ := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
		_, err := sale.AddPayment(pos.PaymentMethod(req.Method), amount, req.Reference)
		return err
	})
}

// RemovePayment removes a mistakenly entered payment from an open sale
func (s *SaleService) RemovePayment(ctx context.Context, saleID, paymentID uuid.UUID) (*SaleResponse, error) {
	return s.modify(ctx, saleID, func(sale *pos.Sale) error {
		return sale.RemovePayment(paymentID)
	})
}

// modify loads a sale, applies an operation, and saves it
func (s *SaleService) modify(ctx context.Context, saleID uuid.UUID, op func(*pos.Sale) error) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if err := op(sale); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	response := ToSaleResponse(sale)
	return &response, nil
}

// Complete closes the sale once the tendered payments cover the grand
// total. The published SaleCompleted event deducts stock, updates customer
// stats, and queues the receipt notification.
func (s *SaleService) Complete(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if err := sale.Complete(); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, sale.GetDomainEvents()...); err != nil {
			return nil, err
		}
		sale.ClearDomainEvents()
	}

	response := ToSaleResponse(sale)
	return &response, nil
}

// Void cancels a sale. Whether the caller may void, manager role and so on,
// is enforced at the API layer. Voiding a completed sale publishes an event
// that restores the deducted stock.
func (s *SaleService) Void(ctx context.Context, saleID uuid.UUID, req VoidSaleRequest) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if err := sale.Void(req.VoidedBy, req.Reason); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, sale.GetDomainEvents()...); err != nil {
			return nil, err
		}
		sale.ClearDomainEvents()
	}

	response := ToSaleResponse(sale)
	return &response, nil
}

// SweepAbandoned voids open sales left untouched since before the cutoff.
// A till that crashed mid-sale leaves one behind; the worker runs this so
// they do not accumulate. Sales that fail to void are left for the next
// sweep.
func (s *SaleService) SweepAbandoned(ctx context.Context, cutoff time.Time) (int, error) {
	sales, err := s.saleRepo.FindOpenOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	var errs []error
	for i := range sales {
		sale := &sales[i]
		if err := sale.Void(sale.CashierID, "abandoned open sale"); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.saleRepo.Save(ctx, sale); err != nil {
			errs = append(errs, err)
			continue
		}
		if s.eventPublisher != nil {
			if err := s.eventPublisher.Publish(ctx, sale.GetDomainEvents()...); err != nil {
				errs = append(errs, err)
				continue
			}
			sale.ClearDomainEvents()
		}
		swept++
	}

	return swept, errors.Join(errs...)
}

// Summary aggregates the sales completed in a window, the close-of-day
// till report
func (s *SaleService) Summary(ctx context.Context, from, to time.Time) (*SalesSummaryResponse, error) {
	filter := shared.Filter{
		Page:     1,
		PageSize: 10000,
		Filters:  map[string]interface{}{"status": pos.SaleStatusCompleted},
	}
	sales, err := s.saleRepo.FindByPeriod(ctx, from, to, filter)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummaryResponse{
		From:          from,
		To:            to,
		GrossTotal:    decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		NetTotal:      decimal.Zero,
		ByMethod:      make(map[string]decimal.Decimal),
	}
	for i := range sales {
		sale := &sales[i]
		summary.SaleCount++
		summary.GrossTotal = summary.GrossTotal.Add(sale.Subtotal)
		summary.DiscountTotal = summary.DiscountTotal.Add(sale.Discount)
		summary.TaxTotal = summary.TaxTotal.Add(sale.TaxTotal)
		summary.NetTotal = summary.NetTotal.Add(sale.GrandTotal)
		for _, payment := range sale.Payments {
			method := payment.Method.String()
			summary.ByMethod[method] = summary.ByMethod[method].Add(payment.Amount)
		}
	}

	return summary, nil
}
