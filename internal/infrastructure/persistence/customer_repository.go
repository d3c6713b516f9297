package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	source tenantdb.Source
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(source tenantdb.Source) *GormCustomerRepository {
	return &GormCustomerRepository{source: source}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Customer, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var customer crm.Customer
	if err := db.First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByPhone finds a customer by normalized phone number
func (r *GormCustomerRepository) FindByPhone(ctx context.Context, phone string) (*crm.Customer, error) {
	normalized, err := crm.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var customer crm.Customer
	if err := db.Where("phone = ?", normalized).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindAll finds all customers matching the filter
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Customer, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var customers []crm.Customer
	query := r.applyFilter(db.Model(&crm.Customer{}), filter)

	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindOptedIn finds active customers who accepted WhatsApp messaging
func (r *GormCustomerRepository) FindOptedIn(ctx context.Context, filter shared.Filter) ([]crm.Customer, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var customers []crm.Customer
	query := r.applyFilter(
		db.Model(&crm.Customer{}).
			Where("whats_app_opt_in = ? AND status = ?", true, crm.CustomerStatusActive),
		filter,
	)

	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindTopBySpend returns the highest lifetime-spend customers
func (r *GormCustomerRepository) FindTopBySpend(ctx context.Context, limit int) ([]crm.Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var customers []crm.Customer
	if err := db.Where("status = ?", crm.CustomerStatusActive).
		Order("lifetime_spend DESC").
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *crm.Customer) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(customer).Error
}

// SaveAll persists multiple customers in one transaction, used by the
// duplicate merge flow so the survivor and the merged record move together
func (r *GormCustomerRepository) SaveAll(ctx context.Context, customers ...*crm.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, customer := range customers {
			if err := tx.Save(customer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a customer
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&crm.Customer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts customers matching the filter
func (r *GormCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := r.applyFilterWithoutPagination(db.Model(&crm.Customer{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByPhone checks if a customer with the given phone exists
func (r *GormCustomerRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	normalized, err := crm.NormalizePhone(phone)
	if err != nil {
		return false, err
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&crm.Customer{}).
		Where("phone = ?", normalized).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, CustomerSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormCustomerRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "whatsapp_opt_in":
			query = query.Where("whats_app_opt_in = ?", value)
		case "min_loyalty_points":
			query = query.Where("loyalty_points >= ?", value)
		case "has_credit":
			if value == true {
				query = query.Where("credit_balance > 0")
			}
		}
	}

	return query
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ crm.CustomerRepository = (*GormCustomerRepository)(nil)
