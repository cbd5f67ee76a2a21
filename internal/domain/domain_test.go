package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRole_AtLeast(t *testing.T) {
	assert.True(t, EventRoleOwner.AtLeast(EventRoleManager))
	assert.True(t, EventRoleKeyman.AtLeast(EventRoleKeyman))
	assert.False(t, EventRoleViewer.AtLeast(EventRoleKeyman))
	assert.False(t, EventRole("ROOT").AtLeast(EventRoleViewer))
	assert.False(t, EventRoleOwner.AtLeast(EventRole("ROOT")))
}

func TestLeavesNoOwner(t *testing.T) {
	manager := EventRoleManager
	owner := EventRoleOwner

	assert.True(t, LeavesNoOwner(1, EventRoleOwner, &manager), "demoting the last owner")
	assert.True(t, LeavesNoOwner(1, EventRoleOwner, nil), "revoking the last owner")
	assert.False(t, LeavesNoOwner(2, EventRoleOwner, nil))
	assert.False(t, LeavesNoOwner(1, EventRoleOwner, &owner))
	assert.False(t, LeavesNoOwner(1, EventRoleManager, nil))
}

func TestEvent_StatusAt(t *testing.T) {
	e := &Event{
		StartDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, EventStatusUpcoming, e.StatusAt(time.Date(2026, 7, 9, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, EventStatusCurrent, e.StatusAt(time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, EventStatusCurrent, e.StatusAt(time.Date(2026, 7, 12, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, EventStatusPast, e.StatusAt(time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC)))

	e.RefreshStatus(time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, EventStatusCurrent, e.Status)
}

func TestPosition_DeclaredHours(t *testing.T) {
	start, end := "10:00", "12:00"
	earlyStart, earlyEnd := "07:50", "10:00"

	p := &Position{Shifts: []Shift{
		{ID: 2, Name: "Morning 2", StartTime: &start, EndTime: &end, Sequence: 2},
		{ID: 1, Name: "Morning 1", StartTime: &earlyStart, EndTime: &earlyEnd, Sequence: 1},
	}}

	shift, ok := p.DeclaredHours()
	require.True(t, ok)
	assert.Equal(t, int64(1), shift.ID)
	// 原始顺序不应被修改
	assert.Equal(t, int64(2), p.Shifts[0].ID)

	allDay := &Position{Shifts: []Shift{{ID: 3, Name: "All Day", IsAllDay: true, Sequence: 1}}}
	_, ok = allDay.DeclaredHours()
	assert.False(t, ok)
	assert.True(t, allDay.HasAllDayShift())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := ErrConflictingAssignment.WithDetail("conflicts", 2)

	assert.True(t, errors.Is(err, ErrConflictingAssignment))
	assert.False(t, errors.Is(err, ErrNotAssociated))
	assert.Nil(t, ErrConflictingAssignment.Details, "sentinel must not be mutated")
	assert.Equal(t, 2, err.Details["conflicts"])

	wrapped := fmt.Errorf("create: %w", err)
	var domainErr *Error
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, KindConflict, domainErr.Kind)
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrIntegrity.Wrap(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrIntegrity))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAcceptsShifts(t *testing.T) {
	start, end := "08:00", "10:00"
	timed := Shift{Name: "Morning", StartTime: &start, EndTime: &end}
	allDay := Shift{Name: "All Day", IsAllDay: true}

	assert.True(t, AcceptsShifts(nil, []Shift{allDay}))
	assert.True(t, AcceptsShifts([]Shift{timed}, []Shift{timed}))
	assert.False(t, AcceptsShifts([]Shift{allDay}, []Shift{timed}))
	assert.False(t, AcceptsShifts([]Shift{timed}, []Shift{allDay}))
	assert.False(t, AcceptsShifts(nil, []Shift{allDay, allDay}))
}

func TestNextSequence(t *testing.T) {
	assert.Equal(t, int32(1), NextSequence(nil))
	assert.Equal(t, int32(4), NextSequence([]Shift{{Sequence: 1}, {Sequence: 3}}))
}
