package workforce

import (
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/workforce"
)

// CreateShiftRequest represents a request to define a working window.
// Start and End are wall clocks in "HH:MM" form.
type CreateShiftRequest struct {
	Name         string `json:"name"`
	Start        string `json:"start"`
	End          string `json:"end"`
	GraceMinutes int    `json:"grace_minutes"`
}

// UpdateShiftRequest represents a request to change a shift definition
type UpdateShiftRequest struct {
	Name         string `json:"name"`
	Start        string `json:"start"`
	End          string `json:"end"`
	GraceMinutes int    `json:"grace_minutes"`
}

// ClockInRequest represents a staff member clocking in against a shift.
// A nil At means now; managers may backfill a missed punch with an
// explicit timestamp.
type ClockInRequest struct {
	UserID  uuid.UUID  `json:"user_id"`
	ShiftID uuid.UUID  `json:"shift_id"`
	At      *time.Time `json:"at,omitempty"`
}

// ClockOutRequest represents a staff member clocking out
type ClockOutRequest struct {
	UserID uuid.UUID  `json:"user_id"`
	At     *time.Time `json:"at,omitempty"`
	Note   string     `json:"note,omitempty"`
}

// ShiftResponse represents a shift in API responses
type ShiftResponse struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Name         string    `json:"name"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	GraceMinutes int       `json:"grace_minutes"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// AttendanceResponse represents an attendance record in API responses
type AttendanceResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	UserID        uuid.UUID  `json:"user_id"`
	ShiftID       uuid.UUID  `json:"shift_id"`
	WorkDate      time.Time  `json:"work_date"`
	ClockInAt     *time.Time `json:"clock_in_at,omitempty"`
	ClockOutAt    *time.Time `json:"clock_out_at,omitempty"`
	Status        string     `json:"status"`
	WorkedMinutes int        `json:"worked_minutes"`
	Note          string     `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AttendanceListFilter represents filtering options for attendance lists
type AttendanceListFilter struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Status   string     `json:"status,omitempty"`
	Page     int        `json:"page,omitempty"`
	PageSize int        `json:"page_size,omitempty"`
	OrderBy  string     `json:"order_by,omitempty"`
	OrderDir string     `json:"order_dir,omitempty"`
}

// TimesheetEntry is one user's aggregated attendance over a period
type TimesheetEntry struct {
	UserID        uuid.UUID `json:"user_id"`
	DaysPresent   int       `json:"days_present"`
	DaysLate      int       `json:"days_late"`
	DaysAbsent    int       `json:"days_absent"`
	WorkedMinutes int       `json:"worked_minutes"`
}

// TimesheetResponse summarizes attendance over a period
type TimesheetResponse struct {
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	Entries []TimesheetEntry `json:"entries"`
}

// ToShiftResponse converts a domain shift to a response DTO
func ToShiftResponse(shift *workforce.Shift) ShiftResponse {
	return ShiftResponse{
		ID:           shift.ID,
		TenantID:     shift.TenantID,
		Name:         shift.Name,
		Start:        shift.StartClock(),
		End:          shift.EndClock(),
		GraceMinutes: shift.GraceMinutes,
		Status:       shift.Status.String(),
		CreatedAt:    shift.CreatedAt,
		UpdatedAt:    shift.UpdatedAt,
		Version:      shift.Version,
	}
}

// ToShiftResponses converts domain shifts to response DTOs
func ToShiftResponses(shifts []workforce.Shift) []ShiftResponse {
	responses := make([]ShiftResponse, len(shifts))
	for i := range shifts {
		responses[i] = ToShiftResponse(&shifts[i])
	}
	return responses
}

// ToAttendanceResponse converts a domain attendance record to a response DTO
func ToAttendanceResponse(record *workforce.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:            record.ID,
		TenantID:      record.TenantID,
		UserID:        record.UserID,
		ShiftID:       record.ShiftID,
		WorkDate:      record.WorkDate,
		ClockInAt:     record.ClockInAt,
		ClockOutAt:    record.ClockOutAt,
		Status:        record.Status.String(),
		WorkedMinutes: record.WorkedMinutes,
		Note:          record.Note,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// ToAttendanceResponses converts domain attendance records to response DTOs
func ToAttendanceResponses(records []workforce.AttendanceRecord) []AttendanceResponse {
	responses := make([]AttendanceResponse, len(records))
	for i := range records {
		responses[i] = ToAttendanceResponse(&records[i])
	}
	return responses
}
