package workforce

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func morningShift(t *testing.T, tenantID uuid.UUID) *Shift {
	t.Helper()
	shift, err := NewShift(tenantID, "Morning", "09:00", "17:00", 15)
	require.NoError(t, err)
	return shift
}

func TestClockIn(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("within grace is present", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		at := time.Date(2026, 8, 24, 9, 10, 0, 0, time.UTC)

		record, err := ClockIn(tenantID, userID, shift, at)
		require.NoError(t, err)

		assert.Equal(t, AttendanceStatusPresent, record.Status)
		assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), record.WorkDate)
		require.NotNil(t, record.ClockInAt)
		assert.True(t, record.IsOpen())

		events := record.GetDomainEvents()
		require.Len(t, events, 1)
		clockedIn, ok := events[0].(*StaffClockedInEvent)
		require.True(t, ok)
		assert.False(t, clockedIn.Late)
	})

	t.Run("exactly at grace threshold is present", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		at := time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC)

		record, err := ClockIn(tenantID, userID, shift, at)
		require.NoError(t, err)
		assert.Equal(t, AttendanceStatusPresent, record.Status)
	})

	t.Run("after grace is late", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		at := time.Date(2026, 8, 24, 9, 16, 0, 0, time.UTC)

		record, err := ClockIn(tenantID, userID, shift, at)
		require.NoError(t, err)
		assert.Equal(t, AttendanceStatusLate, record.Status)
	})

	t.Run("inactive shift rejected", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		require.NoError(t, shift.Deactivate())

		_, err := ClockIn(tenantID, userID, shift, time.Now())
		assert.Error(t, err)
	})

	t.Run("shift from another tenant rejected", func(t *testing.T) {
		shift := morningShift(t, uuid.New())

		_, err := ClockIn(tenantID, userID, shift, time.Now())
		assert.Error(t, err)
	})
}

func TestClockOut(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	open := func(t *testing.T, shift *Shift, at time.Time) *AttendanceRecord {
		t.Helper()
		record, err := ClockIn(tenantID, userID, shift, at)
		require.NoError(t, err)
		record.ClearDomainEvents()
		return record
	}

	t.Run("full day computes worked minutes", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))

		err := record.ClockOut(shift, time.Date(2026, 8, 24, 17, 30, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.Equal(t, AttendanceStatusPresent, record.Status)
		assert.Equal(t, 510, record.WorkedMinutes)
		assert.False(t, record.IsOpen())

		events := record.GetDomainEvents()
		require.Len(t, events, 1)
		clockedOut, ok := events[0].(*StaffClockedOutEvent)
		require.True(t, ok)
		assert.Equal(t, 510, clockedOut.WorkedMinutes)
	})

	t.Run("leaving before shift end is early leave", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))

		require.NoError(t, record.ClockOut(shift, time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)))
		assert.Equal(t, AttendanceStatusEarlyLeave, record.Status)
		assert.Equal(t, 360, record.WorkedMinutes)
	})

	t.Run("early leave overrides late", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
		require.Equal(t, AttendanceStatusLate, record.Status)

		require.NoError(t, record.ClockOut(shift, time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)))
		assert.Equal(t, AttendanceStatusEarlyLeave, record.Status)
	})

	t.Run("late stays late on a full day", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))

		require.NoError(t, record.ClockOut(shift, time.Date(2026, 8, 24, 17, 0, 0, 0, time.UTC)))
		assert.Equal(t, AttendanceStatusLate, record.Status)
	})

	t.Run("clock-out before clock-in impossible", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))

		err := record.ClockOut(shift, time.Date(2026, 8, 24, 8, 59, 0, 0, time.UTC))
		assert.Error(t, err)
		assert.True(t, record.IsOpen())
	})

	t.Run("double clock-out rejected", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record := open(t, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))

		require.NoError(t, record.ClockOut(shift, time.Date(2026, 8, 24, 17, 0, 0, 0, time.UTC)))
		assert.Error(t, record.ClockOut(shift, time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)))
	})

	t.Run("clock-out without clock-in rejected", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record, err := NewAbsentRecord(tenantID, userID, shift, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.Error(t, record.ClockOut(shift, time.Now()))
	})
}

func TestAutoClose(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("pins clock-out to shift end", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record, err := ClockIn(tenantID, userID, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		sweepAt := time.Date(2026, 8, 25, 2, 0, 0, 0, time.UTC)
		require.NoError(t, record.AutoClose(shift, sweepAt))

		assert.Equal(t, AttendanceStatusAutoClosed, record.Status)
		require.NotNil(t, record.ClockOutAt)
		assert.Equal(t, time.Date(2026, 8, 24, 17, 0, 0, 0, time.UTC), *record.ClockOutAt)
		assert.Equal(t, 480, record.WorkedMinutes)
	})

	t.Run("sweep before shift end caps at sweep time", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record, err := ClockIn(tenantID, userID, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		sweepAt := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
		require.NoError(t, record.AutoClose(shift, sweepAt))
		assert.Equal(t, 180, record.WorkedMinutes)
	})

	t.Run("closed record cannot be auto-closed", func(t *testing.T) {
		shift := morningShift(t, tenantID)
		record, err := ClockIn(tenantID, userID, shift, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NoError(t, record.ClockOut(shift, time.Date(2026, 8, 24, 17, 0, 0, 0, time.UTC)))

		assert.Error(t, record.AutoClose(shift, time.Now()))
	})
}

func TestAbsentRecord(t *testing.T) {
	t.Run("no-show marked absent", func(t *testing.T) {
		tenantID := uuid.New()
		shift := morningShift(t, tenantID)

		record, err := NewAbsentRecord(tenantID, uuid.New(), shift, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.Equal(t, AttendanceStatusAbsent, record.Status)
		assert.Nil(t, record.ClockInAt)
		assert.Zero(t, record.WorkedMinutes)
		assert.False(t, record.IsOpen())
	})
}
