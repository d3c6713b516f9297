package workforce

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// ShiftStatus represents the lifecycle state of a shift definition
type ShiftStatus string

const (
	ShiftStatusActive   ShiftStatus = "active"
	ShiftStatusInactive ShiftStatus = "inactive"
)

func (s ShiftStatus) IsValid() bool {
	return s == ShiftStatusActive || s == ShiftStatusInactive
}

func (s ShiftStatus) String() string {
	return string(s)
}

const (
	minutesPerDay   = 24 * 60
	maxGraceMinutes = 240
	maxShiftNameLen = 100
)

// Shift is a named working window staff clock in against.
// Start and end are stored as minutes since midnight; a shift whose end
// does not come after its start spans midnight into the next day.
type Shift struct {
	shared.TenantAggregateRoot
	Name         string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_shifts_tenant_name,priority:2" json:"name"`
	StartMinute  int         `gorm:"type:smallint;not null" json:"start_minute"`
	EndMinute    int         `gorm:"type:smallint;not null" json:"end_minute"`
	GraceMinutes int         `gorm:"type:smallint;not null;default:0" json:"grace_minutes"`
	Status       ShiftStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
}

func (Shift) TableName() string {
	return "shifts"
}

// NewShift creates a shift from HH:MM clock strings
func NewShift(tenantID uuid.UUID, name, start, end string, graceMinutes int) (*Shift, error) {
	name = strings.TrimSpace(name)
	if err := validateShiftName(name); err != nil {
		return nil, err
	}
	startMinute, err := parseClock(start)
	if err != nil {
		return nil, err
	}
	endMinute, err := parseClock(end)
	if err != nil {
		return nil, err
	}
	if startMinute == endMinute {
		return nil, shared.NewDomainError("INVALID_SHIFT_WINDOW", "Shift start and end cannot be the same time")
	}
	if graceMinutes < 0 || graceMinutes > maxGraceMinutes {
		return nil, shared.NewDomainError("INVALID_GRACE", fmt.Sprintf("Grace minutes must be between 0 and %d", maxGraceMinutes))
	}

	shift := &Shift{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		StartMinute:         startMinute,
		EndMinute:           endMinute,
		GraceMinutes:        graceMinutes,
		Status:              ShiftStatusActive,
	}

	shift.AddDomainEvent(NewShiftCreatedEvent(shift))

	return shift, nil
}

// Update changes the shift window and grace period
func (s *Shift) Update(name, start, end string, graceMinutes int) error {
	name = strings.TrimSpace(name)
	if err := validateShiftName(name); err != nil {
		return err
	}
	startMinute, err := parseClock(start)
	if err != nil {
		return err
	}
	endMinute, err := parseClock(end)
	if err != nil {
		return err
	}
	if startMinute == endMinute {
		return shared.NewDomainError("INVALID_SHIFT_WINDOW", "Shift start and end cannot be the same time")
	}
	if graceMinutes < 0 || graceMinutes > maxGraceMinutes {
		return shared.NewDomainError("INVALID_GRACE", fmt.Sprintf("Grace minutes must be between 0 and %d", maxGraceMinutes))
	}

	s.Name = name
	s.StartMinute = startMinute
	s.EndMinute = endMinute
	s.GraceMinutes = graceMinutes
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewShiftUpdatedEvent(s))

	return nil
}

// Activate makes the shift available for clock-ins
func (s *Shift) Activate() error {
	if s.Status == ShiftStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Shift is already active")
	}
	s.Status = ShiftStatusActive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// Deactivate retires the shift from new clock-ins
func (s *Shift) Deactivate() error {
	if s.Status == ShiftStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Shift is already inactive")
	}
	s.Status = ShiftStatusInactive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// IsActive returns true when staff may clock in against this shift
func (s *Shift) IsActive() bool {
	return s.Status == ShiftStatusActive
}

// SpansMidnight reports whether the shift ends on the following day
func (s *Shift) SpansMidnight() bool {
	return s.EndMinute <= s.StartMinute
}

// StartClock returns the shift start as HH:MM
func (s *Shift) StartClock() string {
	return formatClock(s.StartMinute)
}

// EndClock returns the shift end as HH:MM
func (s *Shift) EndClock() string {
	return formatClock(s.EndMinute)
}

// WindowOn resolves the shift to concrete start and end instants for the
// given working date. For a shift spanning midnight the end falls on the
// next calendar day.
func (s *Shift) WindowOn(date time.Time) (start, end time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	start = day.Add(time.Duration(s.StartMinute) * time.Minute)
	endMinute := s.EndMinute
	if s.SpansMidnight() {
		endMinute += minutesPerDay
	}
	end = day.Add(time.Duration(endMinute) * time.Minute)
	return start, end
}

// LateThresholdOn returns the instant after which a clock-in counts as late
func (s *Shift) LateThresholdOn(date time.Time) time.Time {
	start, _ := s.WindowOn(date)
	return start.Add(time.Duration(s.GraceMinutes) * time.Minute)
}

func validateShiftName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_SHIFT_NAME", "Shift name cannot be empty")
	}
	if len(name) > maxShiftNameLen {
		return shared.NewDomainError("INVALID_SHIFT_NAME", fmt.Sprintf("Shift name cannot exceed %d characters", maxShiftNameLen))
	}
	return nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, shared.NewDomainError("INVALID_TIME", fmt.Sprintf("Invalid clock time %q, expected HH:MM", value))
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
