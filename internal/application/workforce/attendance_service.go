package workforce

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/workforce"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// AttendanceService handles shift definitions and staff clock-in/out.
// The end-of-day sweep that closes forgotten punches runs from the worker.
type AttendanceService struct {
	shiftRepo      workforce.ShiftRepository
	attendanceRepo workforce.AttendanceRepository
	eventPublisher shared.EventPublisher
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	shiftRepo workforce.ShiftRepository,
	attendanceRepo workforce.AttendanceRepository,
) *AttendanceService {
	return &AttendanceService{
		shiftRepo:      shiftRepo,
		attendanceRepo: attendanceRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *AttendanceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateShift defines a new working window
func (s *AttendanceService) CreateShift(ctx context.Context, req CreateShiftRequest) (*ShiftResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := s.shiftRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A shift with this name already exists")
	}

	shift, err := workforce.NewShift(tenantID, req.Name, req.Start, req.End, req.GraceMinutes)
	if err != nil {
		return nil, err
	}

	if err := s.shiftRepo.Save(ctx, shift); err != nil {
		return nil, err
	}
	if err := s.publishShift(ctx, shift); err != nil {
		return nil, err
	}

	response := ToShiftResponse(shift)
	return &response, nil
}

// UpdateShift changes a shift definition. Attendance already recorded
// against the old window keeps its derived statuses.
func (s *AttendanceService) UpdateShift(ctx context.Context, shiftID uuid.UUID, req UpdateShiftRequest) (*ShiftResponse, error) {
	shift, err := s.shiftRepo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	if err := shift.Update(req.Name, req.Start, req.End, req.GraceMinutes); err != nil {
		return nil, err
	}

	if err := s.shiftRepo.Save(ctx, shift); err != nil {
		return nil, err
	}

	response := ToShiftResponse(shift)
	return &response, nil
}

// ActivateShift reopens a shift for clock-ins
func (s *AttendanceService) ActivateShift(ctx context.Context, shiftID uuid.UUID) (*ShiftResponse, error) {
	return s.modifyShift(ctx, shiftID, (*workforce.Shift).Activate)
}

// DeactivateShift retires a shift; clocking in against it is refused
func (s *AttendanceService) DeactivateShift(ctx context.Context, shiftID uuid.UUID) (*ShiftResponse, error) {
	return s.modifyShift(ctx, shiftID, (*workforce.Shift).Deactivate)
}

func (s *AttendanceService) modifyShift(ctx context.Context, shiftID uuid.UUID, op func(*workforce.Shift) error) (*ShiftResponse, error) {
	shift, err := s.shiftRepo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if err := op(shift); err != nil {
		return nil, err
	}
	if err := s.shiftRepo.Save(ctx, shift); err != nil {
		return nil, err
	}
	response := ToShiftResponse(shift)
	return &response, nil
}

// GetShift retrieves a shift by ID
func (s *AttendanceService) GetShift(ctx context.Context, shiftID uuid.UUID) (*ShiftResponse, error) {
	shift, err := s.shiftRepo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	response := ToShiftResponse(shift)
	return &response, nil
}

// ListShifts retrieves all shift definitions
func (s *AttendanceService) ListShifts(ctx context.Context) ([]ShiftResponse, error) {
	shifts, err := s.shiftRepo.FindAll(ctx, shared.Filter{Page: 1, PageSize: 100, OrderBy: "name", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}
	return ToShiftResponses(shifts), nil
}

// ClockIn opens today's attendance record for the user. A second clock-in
// on the same working date is rejected.
func (s *AttendanceService) ClockIn(ctx context.Context, req ClockInRequest) (*AttendanceResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	existing, err := s.attendanceRepo.FindByUserAndDate(ctx, req.UserID, at)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_CLOCKED_IN", "Staff member already has an attendance record for this date")
	}

	shift, err := s.shiftRepo.FindByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SHIFT_NOT_FOUND", "Shift does not exist")
		}
		return nil, err
	}

	record, err := workforce.ClockIn(tenantID, req.UserID, shift, at)
	if err != nil {
		return nil, err
	}

	if err := s.attendanceRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	if err := s.publishAttendance(ctx, record); err != nil {
		return nil, err
	}

	response := ToAttendanceResponse(record)
	return &response, nil
}

// ClockOut closes today's open attendance record for the user, deriving
// early leave and worked minutes from the shift window.
func (s *AttendanceService) ClockOut(ctx context.Context, req ClockOutRequest) (*AttendanceResponse, error) {
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	record, err := s.attendanceRepo.FindByUserAndDate(ctx, req.UserID, at)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_CLOCKED_IN", "Staff member has not clocked in on this date")
		}
		return nil, err
	}

	shift, err := s.shiftRepo.FindByID(ctx, record.ShiftID)
	if err != nil {
		return nil, err
	}

	if err := record.ClockOut(shift, at); err != nil {
		return nil, err
	}
	if req.Note != "" {
		if err := record.SetNote(req.Note); err != nil {
			return nil, err
		}
	}

	if err := s.attendanceRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	if err := s.publishAttendance(ctx, record); err != nil {
		return nil, err
	}

	response := ToAttendanceResponse(record)
	return &response, nil
}

// MarkAbsent records that a scheduled staff member never clocked in on the
// given date
func (s *AttendanceService) MarkAbsent(ctx context.Context, userID, shiftID uuid.UUID, workDate time.Time) (*AttendanceResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.attendanceRepo.FindByUserAndDate(ctx, userID, workDate)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_RECORDED", "Staff member already has an attendance record for this date")
	}

	shift, err := s.shiftRepo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	record, err := workforce.NewAbsentRecord(tenantID, userID, shift, workDate)
	if err != nil {
		return nil, err
	}

	if err := s.attendanceRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	if err := s.publishAttendance(ctx, record); err != nil {
		return nil, err
	}

	response := ToAttendanceResponse(record)
	return &response, nil
}

// DailyAttendance lists attendance records for one working date
func (s *AttendanceService) DailyAttendance(ctx context.Context, workDate time.Time, filter AttendanceListFilter) ([]AttendanceResponse, int64, error) {
	domainFilter := toDomainFilter(filter)

	records, err := s.attendanceRepo.FindByDate(ctx, workDate, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.attendanceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToAttendanceResponses(records), total, nil
}

// Timesheet aggregates attendance per user over a period
func (s *AttendanceService) Timesheet(ctx context.Context, from, to time.Time) (*TimesheetResponse, error) {
	records, err := s.attendanceRepo.FindByPeriod(ctx, from, to, shared.Filter{
		Page:     1,
		PageSize: 10000,
		OrderBy:  "work_date",
		OrderDir: "asc",
	})
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*TimesheetEntry)
	order := make([]uuid.UUID, 0)
	for i := range records {
		record := &records[i]
		entry, ok := byUser[record.UserID]
		if !ok {
			entry = &TimesheetEntry{UserID: record.UserID}
			byUser[record.UserID] = entry
			order = append(order, record.UserID)
		}

		switch record.Status {
		case workforce.AttendanceStatusAbsent:
			entry.DaysAbsent++
		case workforce.AttendanceStatusLate:
			entry.DaysLate++
			entry.DaysPresent++
		default:
			entry.DaysPresent++
		}
		entry.WorkedMinutes += record.WorkedMinutes
	}

	entries := make([]TimesheetEntry, len(order))
	for i, userID := range order {
		entries[i] = *byUser[userID]
	}

	return &TimesheetResponse{From: from, To: to, Entries: entries}, nil
}

// UserTimesheet aggregates one user's attendance over a period
func (s *AttendanceService) UserTimesheet(ctx context.Context, userID uuid.UUID, from, to time.Time) (*TimesheetEntry, error) {
	records, err := s.attendanceRepo.FindByUserAndPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	entry := &TimesheetEntry{UserID: userID}
	for i := range records {
		record := &records[i]
		switch record.Status {
		case workforce.AttendanceStatusAbsent:
			entry.DaysAbsent++
		case workforce.AttendanceStatusLate:
			entry.DaysLate++
			entry.DaysPresent++
		default:
			entry.DaysPresent++
		}
		entry.WorkedMinutes += record.WorkedMinutes
	}
	return entry, nil
}

// AutoCloseOpen closes attendance records whose staff forgot to clock out,
// using the shift end as the assumed leave time. The worker runs this after
// the end of each working day; records that fail stay open for the next
// sweep.
func (s *AttendanceService) AutoCloseOpen(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := s.attendanceRepo.FindOpenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	var errs []error
	for i := range records {
		record := &records[i]
		shift, err := s.shiftRepo.FindByID(ctx, record.ShiftID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := record.AutoClose(shift, cutoff); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.attendanceRepo.Save(ctx, record); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.publishAttendance(ctx, record); err != nil {
			errs = append(errs, err)
			continue
		}
		closed++
	}

	return closed, errors.Join(errs...)
}

func (s *AttendanceService) publishShift(ctx context.Context, shift *workforce.Shift) error {
	if s.eventPublisher == nil {
		shift.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, shift.GetDomainEvents()...); err != nil {
		return err
	}
	shift.ClearDomainEvents()
	return nil
}

func (s *AttendanceService) publishAttendance(ctx context.Context, record *workforce.AttendanceRecord) error {
	if s.eventPublisher == nil {
		record.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, record.GetDomainEvents()...); err != nil {
		return err
	}
	record.ClearDomainEvents()
	return nil
}

func toDomainFilter(filter AttendanceListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "work_date"
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
	if filter.UserID != nil {
		domainFilter.Filters["user_id"] = *filter.UserID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}
