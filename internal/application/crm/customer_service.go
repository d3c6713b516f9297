package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// LoyaltyEarnRate is the number of loyalty points accrued per whole currency
// unit spent on a completed sale. Fractions of a unit earn nothing.
const LoyaltyEarnRate = 1

// CustomerService handles customer records, loyalty points, and store credit
type CustomerService struct {
	customerRepo   crm.CustomerRepository
	saleRepo       pos.SaleRepository
	eventPublisher shared.EventPublisher
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo crm.CustomerRepository,
	saleRepo pos.SaleRepository,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new customer. The phone number is normalized and must be
// unique within the tenant.
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	normalized, err := crm.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	exists, err := s.customerRepo.ExistsByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this phone already exists")
	}

	customer, err := crm.NewCustomer(tenantID, req.Name, req.Phone)
	if err != nil {
		return nil, err
	}

	if req.Email != "" || req.Address != "" {
		if err := customer.Update(req.Name, req.Email, req.Address); err != nil {
			return nil, err
		}
	}
	customer.SetWhatsAppOptIn(req.WhatsAppOptIn)
	if req.Notes != "" {
		customer.SetNotes(req.Notes)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...); err != nil {
			return nil, err
		}
		customer.ClearDomainEvents()
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByPhone retrieves a customer by phone number. The number is normalized
// before lookup, so any formatting the caller used is accepted.
func (s *CustomerService) GetByPhone(ctx context.Context, phone string) (*CustomerResponse, error) {
	normalized, err := crm.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.FindByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	domainFilter := toDomainFilter(filter)

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToCustomerResponses(customers), total, nil
}

// ListOptedIn retrieves active customers who accepted WhatsApp messaging.
// Campaign sends draw their audience from this list.
func (s *CustomerService) ListOptedIn(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, error) {
	customers, err := s.customerRepo.FindOptedIn(ctx, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToCustomerResponses(customers), nil
}

// TopBySpend retrieves the highest lifetime-spend customers
func (s *CustomerService) TopBySpend(ctx context.Context, limit int) ([]CustomerResponse, error) {
	customers, err := s.customerRepo.FindTopBySpend(ctx, limit)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponses(customers), nil
}

// Update updates a customer's basic information
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		name := customer.Name
		if req.Name != nil {
			name = *req.Name
		}
		email := customer.Email
		if req.Email != nil {
			email = *req.Email
		}
		address := customer.Address
		if req.Address != nil {
			address = *req.Address
		}

		if err := customer.Update(name, email, address); err != nil {
			return err
		}
		if req.Notes != nil {
			customer.SetNotes(*req.Notes)
		}
		return nil
	})
}

// UpdatePhone changes a customer's phone number, enforcing per-tenant
// uniqueness
func (s *CustomerService) UpdatePhone(ctx context.Context, customerID uuid.UUID, phone string) (*CustomerResponse, error) {
	normalized, err := crm.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		if normalized == customer.Phone {
			return nil
		}
		exists, err := s.customerRepo.ExistsByPhone(ctx, normalized)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Customer with this phone already exists")
		}
		return customer.UpdatePhone(normalized)
	})
}

// SetOptIn records the customer's WhatsApp messaging consent
func (s *CustomerService) SetOptIn(ctx context.Context, customerID uuid.UUID, optIn bool) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		customer.SetWhatsAppOptIn(optIn)
		return nil
	})
}

// EarnPoints credits loyalty points to a customer
func (s *CustomerService) EarnPoints(ctx context.Context, customerID uuid.UUID, req LoyaltyRequest) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.EarnPoints(req.Points, req.Reference)
	})
}

// RedeemPoints debits loyalty points from a customer
func (s *CustomerService) RedeemPoints(ctx context.Context, customerID uuid.UUID, req LoyaltyRequest) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.RedeemPoints(req.Points, req.Reference)
	})
}

// AddCredit adds prepaid store credit to a customer
func (s *CustomerService) AddCredit(ctx context.Context, customerID uuid.UUID, req CreditRequest) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.AddCredit(req.Amount)
	})
}

// DeductCredit deducts prepaid store credit from a customer
func (s *CustomerService) DeductCredit(ctx context.Context, customerID uuid.UUID, req CreditRequest) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.DeductCredit(req.Amount)
	})
}

// SetNotes sets free-form notes on a customer
func (s *CustomerService) SetNotes(ctx context.Context, customerID uuid.UUID, notes string) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		customer.SetNotes(notes)
		return nil
	})
}

// Activate activates a customer
func (s *CustomerService) Activate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.Activate()
	})
}

// Deactivate deactivates a customer
func (s *CustomerService) Deactivate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	return s.modify(ctx, customerID, func(customer *crm.Customer) error {
		return customer.Deactivate()
	})
}

// RecordSaleVisit updates visit statistics and accrues loyalty points for a
// completed sale. When the sale's customer was merged away between ringing
// up and completion, the visit lands on the surviving record.
func (s *CustomerService) RecordSaleVisit(ctx context.Context, customerID uuid.UUID, spend decimal.Decimal, at time.Time, reference string) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for customer.IsMerged() && customer.MergedIntoID != nil {
		customer, err = s.customerRepo.FindByID(ctx, *customer.MergedIntoID)
		if err != nil {
			return nil, err
		}
	}

	if err := customer.RecordVisit(spend, at); err != nil {
		return nil, err
	}
	points := spend.Mul(decimal.NewFromInt(LoyaltyEarnRate)).IntPart()
	if points > 0 {
		if err := customer.EarnPoints(points, reference); err != nil {
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...); err != nil {
			return nil, err
		}
		customer.ClearDomainEvents()
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Merge folds two duplicate customer records into one. The older record
// survives: points, credit, and visit statistics move onto it and past sales
// are repointed. The duplicate stays behind as a merged tombstone so stored
// references remain resolvable.
func (s *CustomerService) Merge(ctx context.Context, req MergeCustomersRequest) (*MergeCustomersResponse, error) {
	if req.CustomerID == req.DuplicateID {
		return nil, shared.NewDomainError("INVALID_MERGE", "Cannot merge a customer into itself")
	}

	first, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	second, err := s.customerRepo.FindByID(ctx, req.DuplicateID)
	if err != nil {
		return nil, err
	}

	survivor, duplicate := first, second
	if second.CreatedAt.Before(first.CreatedAt) {
		survivor, duplicate = second, first
	}
	if duplicate.IsMerged() {
		return nil, shared.NewDomainError("ALREADY_MERGED", "Customer has already been merged")
	}

	if err := survivor.AbsorbDuplicate(duplicate); err != nil {
		return nil, err
	}
	if err := duplicate.MarkMerged(survivor.ID); err != nil {
		return nil, err
	}

	if err := s.customerRepo.SaveAll(ctx, survivor, duplicate); err != nil {
		return nil, err
	}

	moved, err := s.saleRepo.ReassignCustomer(ctx, duplicate.ID, survivor.ID)
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		events := append(survivor.GetDomainEvents(), duplicate.GetDomainEvents()...)
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			return nil, err
		}
		survivor.ClearDomainEvents()
		duplicate.ClearDomainEvents()
	}

	return &MergeCustomersResponse{
		Survivor:   ToCustomerResponse(survivor),
		MergedID:   duplicate.ID,
		SalesMoved: moved,
	}, nil
}

// Delete deletes a customer. Customers referenced by sales cannot be
// deleted; deactivate or merge them instead.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	saleFilter := shared.Filter{Filters: map[string]interface{}{"customer_id": id}}
	count, err := s.saleRepo.Count(ctx, saleFilter)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("CUSTOMER_IN_USE", "Customer has recorded sales")
	}

	return s.customerRepo.Delete(ctx, id)
}

// modify loads a customer, applies the operation, saves, and publishes any
// events the operation raised
func (s *CustomerService) modify(ctx context.Context, customerID uuid.UUID, op func(*crm.Customer) error) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := op(customer); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...); err != nil {
			return nil, err
		}
		customer.ClearDomainEvents()
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

func toDomainFilter(filter CustomerListFilter) shared.Filter {
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
	if filter.OptedIn != nil {
		domainFilter.Filters["whatsapp_opt_in"] = *filter.OptedIn
	}
	if filter.MinLoyaltyPoints != nil {
		domainFilter.Filters["min_loyalty_points"] = *filter.MinLoyaltyPoints
	}
	if filter.HasCredit != nil {
		domainFilter.Filters["has_credit"] = *filter.HasCredit
	}
	return domainFilter
}
