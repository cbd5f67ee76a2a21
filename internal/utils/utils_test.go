package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

func TestBuiltinShiftTemplate(t *testing.T) {
	standard, ok := BuiltinShiftTemplate(TemplateStandard)
	require.True(t, ok)
	require.Len(t, standard, 4)
	assert.Equal(t, "07:50", standard[0].StartTime)
	assert.Equal(t, "17:00", standard[3].EndTime)
	assert.NoError(t, ValidateTemplateShifts(standard))

	extended, ok := BuiltinShiftTemplate(TemplateExtended)
	require.True(t, ok)
	assert.Len(t, extended, 5)
	assert.NoError(t, ValidateTemplateShifts(extended))

	allDay, ok := BuiltinShiftTemplate(TemplateAllDay)
	require.True(t, ok)
	require.Len(t, allDay, 1)
	assert.True(t, allDay[0].IsAllDay)

	_, ok = BuiltinShiftTemplate("weekend")
	assert.False(t, ok)

	// 修改返回值不能影响内置模板
	standard[0].Name = "changed"
	again, _ := BuiltinShiftTemplate(TemplateStandard)
	assert.Equal(t, "Morning 1", again[0].Name)
}

func TestRecurringShifts(t *testing.T) {
	shifts, err := RecurringShifts("FREQ=MINUTELY;INTERVAL=120", "08:00", "17:00")
	require.NoError(t, err)
	require.Len(t, shifts, 5)
	assert.Equal(t, "08:00", shifts[0].StartTime)
	assert.Equal(t, "10:00", shifts[0].EndTime)
	// 最后一个班次在结束时间处截断
	assert.Equal(t, "16:00", shifts[4].StartTime)
	assert.Equal(t, "17:00", shifts[4].EndTime)
	assert.NoError(t, ValidateTemplateShifts(shifts))

	shifts, err = RecurringShifts("FREQ=HOURLY;INTERVAL=3", "09:00", "18:00")
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.Equal(t, "15:00", shifts[2].StartTime)
	assert.Equal(t, "18:00", shifts[2].EndTime)
}

func TestRecurringShifts_Rejects(t *testing.T) {
	_, err := RecurringShifts("FREQ=MINUTELY;INTERVAL=60", "17:00", "08:00")
	assert.True(t, errors.Is(err, domain.ErrInvalidTime))

	_, err = RecurringShifts("NOT A RULE", "08:00", "17:00")
	assert.Error(t, err)

	_, err = RecurringShifts("FREQ=MINUTELY;INTERVAL=5", "08:00", "17:00")
	assert.Error(t, err, "too many shifts")
}

func TestTemplateToShifts(t *testing.T) {
	shifts := TemplateToShifts([]domain.ShiftTemplateShift{
		{Name: "Morning", StartTime: "08:00", EndTime: "10:00"},
		{Name: "All Day", StartTime: "08:00", EndTime: "10:00", IsAllDay: true},
	})

	require.Len(t, shifts, 2)
	require.NotNil(t, shifts[0].StartTime)
	assert.Equal(t, "08:00", *shifts[0].StartTime)
	assert.Nil(t, shifts[1].StartTime)
	assert.Nil(t, shifts[1].EndTime)
}

func TestValidateTemplateShifts(t *testing.T) {
	assert.Error(t, ValidateTemplateShifts(nil))
	assert.Error(t, ValidateTemplateShifts([]domain.ShiftTemplateShift{{Name: "", StartTime: "08:00", EndTime: "10:00"}}))
	assert.Error(t, ValidateTemplateShifts([]domain.ShiftTemplateShift{{Name: "A", StartTime: "10:00", EndTime: "08:00"}}))
	assert.Error(t, ValidateTemplateShifts([]domain.ShiftTemplateShift{
		{Name: "A", StartTime: "08:00", EndTime: "10:00"},
		{Name: "B", StartTime: "09:30", EndTime: "11:00"},
	}))
	assert.Error(t, ValidateTemplateShifts([]domain.ShiftTemplateShift{
		{Name: "All Day", IsAllDay: true},
		{Name: "B", StartTime: "09:30", EndTime: "11:00"},
	}))
	assert.NoError(t, ValidateTemplateShifts([]domain.ShiftTemplateShift{
		{Name: "A", StartTime: "08:00", EndTime: "10:00"},
		{Name: "B", StartTime: "10:00", EndTime: "11:00"},
	}))
}

func TestValidatePermissionScope(t *testing.T) {
	dept := domain.ScopeDepartment
	unknown := domain.ScopeType("ZONE")

	assert.NoError(t, ValidatePermissionScope(nil, nil))
	assert.NoError(t, ValidatePermissionScope(&dept, []string{"Parking"}))
	assert.True(t, errors.Is(ValidatePermissionScope(nil, []string{"Parking"}), domain.ErrInvalidScope))
	assert.True(t, errors.Is(ValidatePermissionScope(&dept, nil), domain.ErrInvalidScope))
	assert.True(t, errors.Is(ValidatePermissionScope(&dept, []string{""}), domain.ErrInvalidScope))
	assert.True(t, errors.Is(ValidatePermissionScope(&unknown, []string{"Parking"}), domain.ErrInvalidScope))
}

func TestValidateEventWindow(t *testing.T) {
	day := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	start, end := "08:00", "17:00"

	assert.NoError(t, ValidateEventWindow(&domain.Event{StartDate: day, EndDate: day}))
	assert.NoError(t, ValidateEventWindow(&domain.Event{StartDate: day, EndDate: day.AddDate(0, 0, 2), StartTime: &start, EndTime: &end}))
	assert.Error(t, ValidateEventWindow(&domain.Event{StartDate: day, EndDate: day.AddDate(0, 0, -1)}))
	assert.Error(t, ValidateEventWindow(&domain.Event{StartDate: day, EndDate: day, StartTime: &start}))
	assert.Error(t, ValidateEventWindow(&domain.Event{StartDate: day, EndDate: day, StartTime: &end, EndTime: &start}))
}

func TestValidateAvailability(t *testing.T) {
	assert.NoError(t, ValidateAvailability(nil))
	assert.NoError(t, ValidateAvailability([]domain.AvailabilityWindow{{Start: "08:00", End: "12:00"}, {Start: "12:00", End: "15:00"}}))
	assert.Error(t, ValidateAvailability([]domain.AvailabilityWindow{{Start: "08:00", End: "12:00"}, {Start: "11:00", End: "15:00"}}))
	assert.Error(t, ValidateAvailability([]domain.AvailabilityWindow{{Start: "8", End: "12:00"}}))
}

func TestGenerators(t *testing.T) {
	for i := 0; i < 50; i++ {
		windows := GenerateRandomAvailability()
		assert.NoError(t, ValidateAvailability(windows))
		assert.LessOrEqual(t, windows[0].End, "21:00")
	}

	positions := GenerateRandomPositions(3, 4)
	require.Len(t, positions, 4)
	for i, p := range positions {
		assert.Equal(t, int32(i+1), p.PositionNumber)
		assert.Equal(t, int64(3), p.EventID)
		assert.True(t, p.IsActive)
	}

	assert.NoError(t, ValidateEventWindow(GenerateRandomEvent(1)))
	assert.Len(t, GenerateRandomOTP(), 6)
}
