package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// InvoiceRepository defines the persistence interface for invoices.
// The tenant scope is carried by the context; implementations resolve it
// through the tenant database routing layer.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)
	FindByStatus(ctx context.Context, status InvoiceStatus, filter shared.Filter) ([]Invoice, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// FindDueForOverdue returns issued and partially paid invoices whose
	// due date passed before asOf. Used by the overdue sweep.
	FindDueForOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)

	// OutstandingByCustomer sums the unpaid balance across a customer's
	// open invoices (issued, partially paid, overdue).
	OutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	Save(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByStatus(ctx context.Context, status InvoiceStatus) (int64, error)
}
