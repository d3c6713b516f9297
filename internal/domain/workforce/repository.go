package workforce

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// ShiftRepository defines the persistence interface for shift definitions
type ShiftRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	FindByName(ctx context.Context, name string) (*Shift, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Shift, error)
	FindActive(ctx context.Context) ([]Shift, error)
	Save(ctx context.Context, shift *Shift) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// AttendanceRepository defines the persistence interface for attendance
// records. One record exists per user per working date.
type AttendanceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AttendanceRecord, error)
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, workDate time.Time) (*AttendanceRecord, error)
	FindByDate(ctx context.Context, workDate time.Time, filter shared.Filter) ([]AttendanceRecord, error)
	FindByUserAndPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]AttendanceRecord, error)
	FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]AttendanceRecord, error)

	// FindOpenBefore returns records with a clock-in but no clock-out whose
	// working date is before the cutoff. Used by the end-of-day sweep.
	FindOpenBefore(ctx context.Context, cutoff time.Time) ([]AttendanceRecord, error)

	Save(ctx context.Context, record *AttendanceRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
