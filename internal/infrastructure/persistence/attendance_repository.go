package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/workforce"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// dateOnly formats a timestamp for comparison against a DATE column.
const dateOnly = "2006-01-02"

// GormAttendanceRepository implements AttendanceRepository using GORM
type GormAttendanceRepository struct {
	source tenantdb.Source
}

// NewGormAttendanceRepository creates a new GormAttendanceRepository
func NewGormAttendanceRepository(source tenantdb.Source) *GormAttendanceRepository {
	return &GormAttendanceRepository{source: source}
}

// FindByID finds an attendance record by its ID
func (r *GormAttendanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var record workforce.AttendanceRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByUserAndDate finds the record for one user on one working date
func (r *GormAttendanceRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, workDate time.Time) (*workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var record workforce.AttendanceRecord
	if err := db.Where("user_id = ? AND work_date = ?", userID, workDate.Format(dateOnly)).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByDate finds all records for one working date
func (r *GormAttendanceRepository) FindByDate(ctx context.Context, workDate time.Time, filter shared.Filter) ([]workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var records []workforce.AttendanceRecord
	query := r.applyFilter(
		db.Model(&workforce.AttendanceRecord{}).
			Where("work_date = ?", workDate.Format(dateOnly)),
		filter,
	)

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByUserAndPeriod finds one user's records in a date window
func (r *GormAttendanceRepository) FindByUserAndPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var records []workforce.AttendanceRecord
	if err := db.Where("user_id = ? AND work_date >= ? AND work_date <= ?",
		userID, from.Format(dateOnly), to.Format(dateOnly)).
		Order("work_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByPeriod finds all records in a date window
func (r *GormAttendanceRepository) FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var records []workforce.AttendanceRecord
	query := r.applyFilter(
		db.Model(&workforce.AttendanceRecord{}).
			Where("work_date >= ? AND work_date <= ?", from.Format(dateOnly), to.Format(dateOnly)),
		filter,
	)

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindOpenBefore returns records with a clock-in but no clock-out whose
// working date is before the cutoff. The end-of-day sweep closes these.
func (r *GormAttendanceRepository) FindOpenBefore(ctx context.Context, cutoff time.Time) ([]workforce.AttendanceRecord, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var records []workforce.AttendanceRecord
	if err := db.Where("clock_in_at IS NOT NULL AND clock_out_at IS NULL AND work_date < ?",
		cutoff.Format(dateOnly)).
		Order("work_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save creates or updates an attendance record
func (r *GormAttendanceRepository) Save(ctx context.Context, record *workforce.AttendanceRecord) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(record).Error
}

// Delete deletes an attendance record
func (r *GormAttendanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&workforce.AttendanceRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts attendance records matching the filter
func (r *GormAttendanceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := db.Model(&workforce.AttendanceRecord{})
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "user_id":
			query = query.Where("user_id = ?", value)
		case "shift_id":
			query = query.Where("shift_id = ?", value)
		}
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAttendanceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "user_id":
			query = query.Where("user_id = ?", value)
		case "shift_id":
			query = query.Where("shift_id = ?", value)
		}
	}

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, AttendanceSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("work_date DESC, clock_in_at ASC")
	}

	return query
}

// Ensure GormAttendanceRepository implements AttendanceRepository
var _ workforce.AttendanceRepository = (*GormAttendanceRepository)(nil)
