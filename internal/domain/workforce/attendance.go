package workforce

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// AttendanceStatus classifies a staff member's attendance for one working day
type AttendanceStatus string

const (
	AttendanceStatusPresent    AttendanceStatus = "present"
	AttendanceStatusLate       AttendanceStatus = "late"
	AttendanceStatusEarlyLeave AttendanceStatus = "early_leave"
	AttendanceStatusAbsent     AttendanceStatus = "absent"
	AttendanceStatusAutoClosed AttendanceStatus = "auto_closed"
)

func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusEarlyLeave,
		AttendanceStatusAbsent, AttendanceStatusAutoClosed:
		return true
	}
	return false
}

func (s AttendanceStatus) String() string {
	return string(s)
}

// AttendanceRecord is one staff member's attendance on one working date.
// One record per user per date; the unique index backs the double
// clock-in rejection.
type AttendanceRecord struct {
	shared.TenantAggregateRoot
	UserID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_tenant_user_date,priority:2" json:"user_id"`
	ShiftID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"shift_id"`
	WorkDate      time.Time        `gorm:"type:date;not null;uniqueIndex:idx_attendance_tenant_user_date,priority:3" json:"work_date"`
	ClockInAt     *time.Time       `json:"clock_in_at,omitempty"`
	ClockOutAt    *time.Time       `json:"clock_out_at,omitempty"`
	Status        AttendanceStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	WorkedMinutes int              `gorm:"not null;default:0" json:"worked_minutes"`
	Note          string           `gorm:"type:varchar(255)" json:"note,omitempty"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// ClockIn opens an attendance record for the user against the given shift.
// Lateness is derived from the shift's grace window on the working date.
func ClockIn(tenantID, userID uuid.UUID, shift *Shift, at time.Time) (*AttendanceRecord, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if shift == nil {
		return nil, shared.NewDomainError("INVALID_SHIFT", "Shift cannot be nil")
	}
	if shift.TenantID != tenantID {
		return nil, shared.NewDomainError("TENANT_MISMATCH", "Shift belongs to a different tenant")
	}
	if !shift.IsActive() {
		return nil, shared.NewDomainError("SHIFT_INACTIVE", fmt.Sprintf("Shift %s is not active", shift.Name))
	}

	status := AttendanceStatusPresent
	if at.After(shift.LateThresholdOn(at)) {
		status = AttendanceStatusLate
	}

	record := &AttendanceRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		ShiftID:             shift.ID,
		WorkDate:            workDateOf(at),
		ClockInAt:           &at,
		Status:              status,
	}

	record.AddDomainEvent(NewStaffClockedInEvent(record, status == AttendanceStatusLate))

	return record, nil
}

// NewAbsentRecord marks a scheduled staff member who never clocked in.
// Created by the end-of-day sweep alongside auto-closing open records.
func NewAbsentRecord(tenantID, userID uuid.UUID, shift *Shift, workDate time.Time) (*AttendanceRecord, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if shift == nil {
		return nil, shared.NewDomainError("INVALID_SHIFT", "Shift cannot be nil")
	}
	if shift.TenantID != tenantID {
		return nil, shared.NewDomainError("TENANT_MISMATCH", "Shift belongs to a different tenant")
	}

	record := &AttendanceRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		ShiftID:             shift.ID,
		WorkDate:            workDateOf(workDate),
		Status:              AttendanceStatusAbsent,
	}

	record.AddDomainEvent(NewStaffMarkedAbsentEvent(record))

	return record, nil
}

// IsOpen reports whether the record has a clock-in but no clock-out yet
func (r *AttendanceRecord) IsOpen() bool {
	return r.ClockInAt != nil && r.ClockOutAt == nil
}

// ClockOut closes the record and computes worked minutes. Leaving before
// the shift end marks the record as an early leave, even when the
// clock-in was late.
func (r *AttendanceRecord) ClockOut(shift *Shift, at time.Time) error {
	if r.ClockInAt == nil {
		return shared.NewDomainError("NOT_CLOCKED_IN", "Cannot clock out without clocking in")
	}
	if r.ClockOutAt != nil {
		return shared.NewDomainError("ALREADY_CLOCKED_OUT", "Attendance record is already closed")
	}
	if shift == nil || shift.ID != r.ShiftID {
		return shared.NewDomainError("INVALID_SHIFT", "Shift does not match the attendance record")
	}
	if !at.After(*r.ClockInAt) {
		return shared.NewDomainError("INVALID_CLOCK_OUT", "Clock-out must come after clock-in")
	}

	r.ClockOutAt = &at
	r.WorkedMinutes = int(at.Sub(*r.ClockInAt).Minutes())

	_, shiftEnd := shift.WindowOn(r.WorkDate)
	if at.Before(shiftEnd) {
		r.Status = AttendanceStatusEarlyLeave
	}

	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewStaffClockedOutEvent(r))

	return nil
}

// AutoClose closes a record the staff member forgot to clock out of.
// The clock-out is pinned to the scheduled shift end so worked minutes
// are not inflated by the sweep running later.
func (r *AttendanceRecord) AutoClose(shift *Shift, sweepAt time.Time) error {
	if !r.IsOpen() {
		return shared.NewDomainError("NOT_OPEN", "Only open attendance records can be auto-closed")
	}
	if shift == nil || shift.ID != r.ShiftID {
		return shared.NewDomainError("INVALID_SHIFT", "Shift does not match the attendance record")
	}

	_, shiftEnd := shift.WindowOn(r.WorkDate)
	closeAt := shiftEnd
	if closeAt.After(sweepAt) {
		closeAt = sweepAt
	}
	if !closeAt.After(*r.ClockInAt) {
		closeAt = *r.ClockInAt
	}

	r.ClockOutAt = &closeAt
	r.WorkedMinutes = int(closeAt.Sub(*r.ClockInAt).Minutes())
	r.Status = AttendanceStatusAutoClosed
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewAttendanceAutoClosedEvent(r))

	return nil
}

// SetNote attaches a free-form note to the record
func (r *AttendanceRecord) SetNote(note string) error {
	if len(note) > 255 {
		return shared.NewDomainError("INVALID_NOTE", "Note cannot exceed 255 characters")
	}
	r.Note = note
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// workDateOf truncates a timestamp to its calendar date, preserving location
func workDateOf(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}
