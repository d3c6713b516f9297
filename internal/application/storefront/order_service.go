package storefront

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

const OrderNumberSeries = "SFO"

// OrderService handles storefront checkouts and the order lifecycle.
// Inventory side effects happen in event handlers: confirming reserves
// stock, fulfilling deducts the reservation and cancelling a confirmed
// order releases it.
type OrderService struct {
	storefrontRepo storefront.StorefrontRepository
	orderRepo      storefront.StorefrontOrderRepository
	listingRepo    storefront.ProductListingRepository
	productRepo    catalog.ProductRepository
	locationRepo   inventory.LocationRepository
	customerRepo   crm.CustomerRepository
	numbers        shared.NumberGenerator
	eventPublisher shared.EventPublisher
}

// NewOrderService creates a new OrderService
func NewOrderService(
	storefrontRepo storefront.StorefrontRepository,
	orderRepo storefront.StorefrontOrderRepository,
	listingRepo storefront.ProductListingRepository,
	productRepo catalog.ProductRepository,
	locationRepo inventory.LocationRepository,
	customerRepo crm.CustomerRepository,
	numbers shared.NumberGenerator,
) *OrderService {
	return &OrderService{
		storefrontRepo: storefrontRepo,
		orderRepo:      orderRepo,
		listingRepo:    listingRepo,
		productRepo:    productRepo,
		locationRepo:   locationRepo,
		customerRepo:   customerRepo,
		numbers:        numbers,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Place takes a checkout from a published storefront. Prices come from
// the listing at intake time, never from the shopper. When the contact
// phone matches a known customer the order is linked to them.
func (s *OrderService) Place(ctx context.Context, req PlaceOrderRequest) (*OrderResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sf, err := s.storefrontRepo.FindByID(ctx, req.StorefrontID)
	if err != nil {
		return nil, err
	}
	if !sf.Published {
		return nil, shared.NewDomainError("NOT_PUBLISHED", "Storefront is not accepting orders")
	}

	locationID, err := s.resolveLocation(ctx, sf)
	if err != nil {
		return nil, err
	}

	lines, err := s.buildLines(ctx, sf, req.Lines)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, OrderNumberSeries)
	if err != nil {
		return nil, err
	}

	order, err := storefront.NewStorefrontOrder(tenantID, sf.ID, locationID, number, storefront.OrderContact{
		Name:  req.Contact.Name,
		Phone: req.Contact.Phone,
		Email: req.Contact.Email,
	}, lines)
	if err != nil {
		return nil, err
	}
	if req.DeliveryNote != "" {
		order.SetDeliveryNote(req.DeliveryNote)
	}

	s.linkCustomerByPhone(ctx, order)

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, order); err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// resolveLocation picks the stock location orders are fulfilled from
func (s *OrderService) resolveLocation(ctx context.Context, sf *storefront.Storefront) (uuid.UUID, error) {
	if sf.LocationID != nil {
		return *sf.LocationID, nil
	}
	location, err := s.locationRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.NewDomainError("NO_LOCATION", "Tenant has no stock location to fulfill from")
		}
		return uuid.Nil, err
	}
	return location.ID, nil
}

// buildLines snapshots catalog values onto the checkout lines. Only
// visible listings can be ordered; the effective price is the listing
// override when set, the catalog selling price otherwise.
func (s *OrderService) buildLines(ctx context.Context, sf *storefront.Storefront, reqLines []OrderLineRequest) ([]storefront.OrderLineInput, error) {
	lines := make([]storefront.OrderLineInput, 0, len(reqLines))
	for _, reqLine := range reqLines {
		listing, err := s.listingRepo.FindByStorefrontAndProduct(ctx, sf.ID, reqLine.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("NOT_LISTED", "Product is not available on this storefront")
			}
			return nil, err
		}
		if !listing.Visible {
			return nil, shared.NewDomainError("NOT_LISTED", "Product is not available on this storefront")
		}

		product, err := s.productRepo.FindByID(ctx, reqLine.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive() {
			return nil, shared.NewDomainError("PRODUCT_INACTIVE", "Product is no longer for sale")
		}

		lines = append(lines, storefront.OrderLineInput{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Unit:        product.Unit,
			Quantity:    reqLine.Quantity,
			UnitPrice:   listing.EffectivePrice(product.SellingPrice),
		})
	}
	return lines, nil
}

// linkCustomerByPhone attaches the order to a CRM customer matched by
// the contact phone. Orders from unknown shoppers stay unlinked.
func (s *OrderService) linkCustomerByPhone(ctx context.Context, order *storefront.StorefrontOrder) {
	normalized, err := crm.NormalizePhone(order.CustomerPhone)
	if err != nil {
		return
	}
	customer, err := s.customerRepo.FindByPhone(ctx, normalized)
	if err != nil || customer == nil {
		return
	}
	_ = order.LinkCustomer(customer.ID)
}

// Confirm accepts a placed order; the confirmation handler reserves stock
func (s *OrderService) Confirm(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.modify(ctx, orderID, (*storefront.StorefrontOrder).Confirm)
}

// Fulfill hands a confirmed order over; the handler deducts reserved stock
func (s *OrderService) Fulfill(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.modify(ctx, orderID, (*storefront.StorefrontOrder).Fulfill)
}

// Cancel abandons a placed or confirmed order
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	return s.modify(ctx, orderID, func(o *storefront.StorefrontOrder) error {
		return o.Cancel(req.Reason)
	})
}

// SetDeliveryFee adjusts the delivery fee on an order awaiting confirmation
func (s *OrderService) SetDeliveryFee(ctx context.Context, orderID uuid.UUID, fee decimal.Decimal) (*OrderResponse, error) {
	return s.modify(ctx, orderID, func(o *storefront.StorefrontOrder) error {
		return o.SetDeliveryFee(fee)
	})
}

func (s *OrderService) modify(ctx context.Context, orderID uuid.UUID, op func(*storefront.StorefrontOrder) error) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := op(order); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, order); err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// Get retrieves an order by ID
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// GetByNumber retrieves an order by its document number
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// List retrieves orders matching the filter
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter := toOrderDomainFilter(filter)

	var (
		orders []storefront.StorefrontOrder
		err    error
	)
	switch {
	case filter.StorefrontID != nil:
		orders, err = s.orderRepo.FindByStorefront(ctx, *filter.StorefrontID, domainFilter)
	case filter.Phone != "":
		orders, err = s.orderRepo.FindByCustomerPhone(ctx, filter.Phone, domainFilter)
	default:
		orders, err = s.orderRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// CountByStatus counts orders in the given lifecycle state
func (s *OrderService) CountByStatus(ctx context.Context, status string) (int64, error) {
	orderStatus := storefront.OrderStatus(status)
	if !orderStatus.IsValid() {
		return 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	return s.orderRepo.CountByStatus(ctx, orderStatus)
}

func (s *OrderService) publish(ctx context.Context, order *storefront.StorefrontOrder) error {
	if s.eventPublisher == nil {
		order.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, order.GetDomainEvents()...); err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

func toOrderDomainFilter(filter OrderListFilter) shared.Filter {
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
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}
