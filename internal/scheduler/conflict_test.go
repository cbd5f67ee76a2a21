package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

func existingAssignment(id int64, start, end string, status domain.AssignmentStatus) *domain.Assignment {
	return &domain.Assignment{
		ID:         id,
		EventID:    1,
		UserID:     7,
		PositionID: 1,
		ShiftStart: start,
		ShiftEnd:   end,
		Status:     status,
	}
}

func TestHasConflict(t *testing.T) {
	existing := []*domain.Assignment{
		existingAssignment(1, "09:00", "11:00", domain.AssignmentAssigned),
	}

	assert.True(t, HasConflict(existing, mustInterval(t, "10:30", "12:00"), 0))
	assert.False(t, HasConflict(existing, mustInterval(t, "11:00", "12:30"), 0), "back-to-back shifts do not conflict")
	assert.False(t, HasConflict(nil, mustInterval(t, "10:30", "12:00"), 0))
}

func TestHasConflict_ExcludesOwnAssignment(t *testing.T) {
	existing := []*domain.Assignment{
		existingAssignment(1, "09:00", "11:00", domain.AssignmentConfirmed),
		existingAssignment(2, "13:00", "15:00", domain.AssignmentAssigned),
	}

	// 修改 1 号安排自己的时间不应与自己冲突
	assert.False(t, HasConflict(existing, mustInterval(t, "09:30", "12:00"), 1))
	assert.True(t, HasConflict(existing, mustInterval(t, "09:30", "13:30"), 1))
}

func TestHasConflict_IgnoresDeclined(t *testing.T) {
	existing := []*domain.Assignment{
		existingAssignment(1, "09:00", "11:00", domain.AssignmentDeclined),
	}

	assert.False(t, HasConflict(existing, mustInterval(t, "10:00", "10:30"), 0))
}

func TestFindConflicts_ReportsAll(t *testing.T) {
	existing := []*domain.Assignment{
		existingAssignment(1, "08:00", "09:00", domain.AssignmentAssigned),
		existingAssignment(2, "09:00", "10:00", domain.AssignmentCompleted),
		existingAssignment(3, "10:00", "11:00", domain.AssignmentNoShow),
		existingAssignment(4, "11:00", "12:00", domain.AssignmentAssigned),
	}

	conflicts := FindConflicts(existing, mustInterval(t, "08:30", "10:30"), 0)
	assert.Len(t, conflicts, 3)
	assert.Equal(t, int64(1), conflicts[0].ID)
	assert.Equal(t, int64(3), conflicts[2].ID)
}

func TestBusyIntervals(t *testing.T) {
	existing := []*domain.Assignment{
		existingAssignment(1, "08:00", "09:00", domain.AssignmentAssigned),
		existingAssignment(2, "09:00", "10:00", domain.AssignmentDeclined),
	}

	busy := BusyIntervals(existing)
	assert.Equal(t, []Interval{{Start: 480, End: 540}}, busy)
}
