package workforce

import (
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// ShiftCreatedEvent is raised when a new shift is defined
type ShiftCreatedEvent struct {
	shared.BaseDomainEvent
	ShiftID      uuid.UUID `json:"shift_id"`
	Name         string    `json:"name"`
	StartClock   string    `json:"start_clock"`
	EndClock     string    `json:"end_clock"`
	GraceMinutes int       `json:"grace_minutes"`
}

// NewShiftCreatedEvent creates a new ShiftCreatedEvent
func NewShiftCreatedEvent(s *Shift) *ShiftCreatedEvent {
	return &ShiftCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ShiftCreated", "Shift", s.ID, s.TenantID),
		ShiftID:         s.ID,
		Name:            s.Name,
		StartClock:      s.StartClock(),
		EndClock:        s.EndClock(),
		GraceMinutes:    s.GraceMinutes,
	}
}

// ShiftUpdatedEvent is raised when a shift window or grace period changes
type ShiftUpdatedEvent struct {
	shared.BaseDomainEvent
	ShiftID      uuid.UUID `json:"shift_id"`
	Name         string    `json:"name"`
	StartClock   string    `json:"start_clock"`
	EndClock     string    `json:"end_clock"`
	GraceMinutes int       `json:"grace_minutes"`
}

// NewShiftUpdatedEvent creates a new ShiftUpdatedEvent
func NewShiftUpdatedEvent(s *Shift) *ShiftUpdatedEvent {
	return &ShiftUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ShiftUpdated", "Shift", s.ID, s.TenantID),
		ShiftID:         s.ID,
		Name:            s.Name,
		StartClock:      s.StartClock(),
		EndClock:        s.EndClock(),
		GraceMinutes:    s.GraceMinutes,
	}
}

// StaffClockedInEvent is raised when a staff member opens their working day
type StaffClockedInEvent struct {
	shared.BaseDomainEvent
	RecordID  uuid.UUID `json:"record_id"`
	UserID    uuid.UUID `json:"user_id"`
	ShiftID   uuid.UUID `json:"shift_id"`
	WorkDate  time.Time `json:"work_date"`
	ClockInAt time.Time `json:"clock_in_at"`
	Late      bool      `json:"late"`
}

// NewStaffClockedInEvent creates a new StaffClockedInEvent
func NewStaffClockedInEvent(r *AttendanceRecord, late bool) *StaffClockedInEvent {
	clockIn := time.Now()
	if r.ClockInAt != nil {
		clockIn = *r.ClockInAt
	}
	return &StaffClockedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StaffClockedIn", "AttendanceRecord", r.ID, r.TenantID),
		RecordID:        r.ID,
		UserID:          r.UserID,
		ShiftID:         r.ShiftID,
		WorkDate:        r.WorkDate,
		ClockInAt:       clockIn,
		Late:            late,
	}
}

// StaffClockedOutEvent is raised when a staff member closes their working day
type StaffClockedOutEvent struct {
	shared.BaseDomainEvent
	RecordID      uuid.UUID        `json:"record_id"`
	UserID        uuid.UUID        `json:"user_id"`
	WorkDate      time.Time        `json:"work_date"`
	ClockOutAt    time.Time        `json:"clock_out_at"`
	Status        AttendanceStatus `json:"status"`
	WorkedMinutes int              `json:"worked_minutes"`
}

// NewStaffClockedOutEvent creates a new StaffClockedOutEvent
func NewStaffClockedOutEvent(r *AttendanceRecord) *StaffClockedOutEvent {
	clockOut := time.Now()
	if r.ClockOutAt != nil {
		clockOut = *r.ClockOutAt
	}
	return &StaffClockedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StaffClockedOut", "AttendanceRecord", r.ID, r.TenantID),
		RecordID:        r.ID,
		UserID:          r.UserID,
		WorkDate:        r.WorkDate,
		ClockOutAt:      clockOut,
		Status:          r.Status,
		WorkedMinutes:   r.WorkedMinutes,
	}
}

// AttendanceAutoClosedEvent is raised when the end-of-day sweep closes a
// record the staff member forgot to clock out of
type AttendanceAutoClosedEvent struct {
	shared.BaseDomainEvent
	RecordID      uuid.UUID `json:"record_id"`
	UserID        uuid.UUID `json:"user_id"`
	WorkDate      time.Time `json:"work_date"`
	WorkedMinutes int       `json:"worked_minutes"`
}

// NewAttendanceAutoClosedEvent creates a new AttendanceAutoClosedEvent
func NewAttendanceAutoClosedEvent(r *AttendanceRecord) *AttendanceAutoClosedEvent {
	return &AttendanceAutoClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AttendanceAutoClosed", "AttendanceRecord", r.ID, r.TenantID),
		RecordID:        r.ID,
		UserID:          r.UserID,
		WorkDate:        r.WorkDate,
		WorkedMinutes:   r.WorkedMinutes,
	}
}

// StaffMarkedAbsentEvent is raised when the sweep records a no-show
type StaffMarkedAbsentEvent struct {
	shared.BaseDomainEvent
	RecordID uuid.UUID `json:"record_id"`
	UserID   uuid.UUID `json:"user_id"`
	ShiftID  uuid.UUID `json:"shift_id"`
	WorkDate time.Time `json:"work_date"`
}

// NewStaffMarkedAbsentEvent creates a new StaffMarkedAbsentEvent
func NewStaffMarkedAbsentEvent(r *AttendanceRecord) *StaffMarkedAbsentEvent {
	return &StaffMarkedAbsentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StaffMarkedAbsent", "AttendanceRecord", r.ID, r.TenantID),
		RecordID:        r.ID,
		UserID:          r.UserID,
		ShiftID:         r.ShiftID,
		WorkDate:        r.WorkDate,
	}
}
