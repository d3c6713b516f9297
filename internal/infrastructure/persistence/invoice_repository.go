package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	source tenantdb.Source
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(source tenantdb.Source) *GormInvoiceRepository {
	return &GormInvoiceRepository{source: source}
}

// FindByID finds an invoice by its ID, lines included
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var invoice invoicing.Invoice
	if err := db.Preload("Lines").First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var invoice invoicing.Invoice
	if err := db.Preload("Lines").
		Where("number = ?", number).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAll finds all invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var invoices []invoicing.Invoice
	query := r.applyFilter(db.Model(&invoicing.Invoice{}), filter)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByStatus finds invoices by status
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, status invoicing.InvoiceStatus, filter shared.Filter) ([]invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var invoices []invoicing.Invoice
	query := r.applyFilter(
		db.Model(&invoicing.Invoice{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByCustomer finds invoices billed to one customer
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var invoices []invoicing.Invoice
	query := r.applyFilter(
		db.Model(&invoicing.Invoice{}).Where("customer_id = ?", customerID),
		filter,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindDueForOverdue returns issued and partially paid invoices whose due
// date passed before asOf. The overdue sweep marks these.
func (r *GormInvoiceRepository) FindDueForOverdue(ctx context.Context, asOf time.Time) ([]invoicing.Invoice, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	// The sweep saves these aggregates; saving without loaded lines would
	// wipe them.
	var invoices []invoicing.Invoice
	if err := db.Preload("Lines").
		Where("status IN ?", []invoicing.InvoiceStatus{
			invoicing.InvoiceStatusIssued,
			invoicing.InvoiceStatusPartiallyPaid,
		}).
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// OutstandingByCustomer sums the unpaid balance across a customer's open
// invoices (issued, partially paid, overdue)
func (r *GormInvoiceRepository) OutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var outstanding decimal.NullDecimal
	if err := db.Model(&invoicing.Invoice{}).
		Select("COALESCE(SUM(grand_total - amount_paid), 0)").
		Where("customer_id = ?", customerID).
		Where("status IN ?", []invoicing.InvoiceStatus{
			invoicing.InvoiceStatusIssued,
			invoicing.InvoiceStatusPartiallyPaid,
			invoicing.InvoiceStatusOverdue,
		}).
		Scan(&outstanding).Error; err != nil {
		return decimal.Zero, err
	}
	if !outstanding.Valid {
		return decimal.Zero, nil
	}
	return outstanding.Decimal, nil
}

// Save creates or updates an invoice with its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(invoice).Error; err != nil {
			return err
		}

		lineIDs := make([]uuid.UUID, len(invoice.Lines))
		for i, line := range invoice.Lines {
			lineIDs[i] = line.ID
		}
		if len(lineIDs) > 0 {
			if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoice.ID, lineIDs).
				Delete(&invoicing.InvoiceLine{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("invoice_id = ?", invoice.ID).
				Delete(&invoicing.InvoiceLine{}).Error; err != nil {
				return err
			}
		}
		for i := range invoice.Lines {
			invoice.Lines[i].InvoiceID = invoice.ID
			if err := tx.Save(&invoice.Lines[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete deletes an invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&invoicing.InvoiceLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&invoicing.Invoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := r.applyFilterWithoutPagination(db.Model(&invoicing.Invoice{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts invoices in one status
func (r *GormInvoiceRepository) CountByStatus(ctx context.Context, status invoicing.InvoiceStatus) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&invoicing.Invoice{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR customer_name ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "due_before":
			query = query.Where("due_date IS NOT NULL AND due_date < ?", value)
		case "issued_after":
			query = query.Where("issued_at >= ?", value)
		}
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
