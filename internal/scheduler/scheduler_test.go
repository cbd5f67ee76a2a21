package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allDay = Interval{Start: 9 * 60, End: 17 * 60}

func slots(n int, hours Interval) []Slot {
	out := make([]Slot, n)
	for i := range out {
		out[i] = Slot{PositionID: int64(i + 1), PositionNumber: int32(i + 1), Hours: hours}
	}
	return out
}

// hourly 返回 n 个从 08:00 开始、首尾相接的一小时岗位
func hourly(n int) []Slot {
	out := make([]Slot, n)
	for i := range out {
		start := 8*60 + i*60
		out[i] = Slot{PositionID: int64(i + 1), PositionNumber: int32(i + 1), Hours: Interval{Start: start, End: start + 60}}
	}
	return out
}

func people(ids ...int64) []Person {
	out := make([]Person, len(ids))
	for i, id := range ids {
		out[i] = Person{UserID: id}
	}
	return out
}

func TestSchedule_OnePerPersonWithCap(t *testing.T) {
	s := New(Snapshot{
		People: people(10, 20, 30),
		Slots:  hourly(3),
	}, Options{MaxAssignmentsPerPerson: 1})

	plan := s.Schedule()

	require.Len(t, plan.Assignments, 3)
	seenPeople := map[int64]bool{}
	seenPositions := map[int64]bool{}
	for _, a := range plan.Assignments {
		seenPeople[a.UserID] = true
		seenPositions[a.PositionID] = true
	}
	assert.Len(t, seenPeople, 3)
	assert.Len(t, seenPositions, 3)
	assert.Equal(t, map[int64]int{10: 1, 20: 1, 30: 1}, plan.Workload)
	assert.Empty(t, plan.SkippedPositionIDs)
}

func TestSchedule_BalancesWorkloadInPoolOrder(t *testing.T) {
	s := New(Snapshot{
		People: people(1, 2),
		Slots:  hourly(5),
	}, Options{})

	plan := s.Schedule()

	require.Len(t, plan.Assignments, 5)
	got := make([]int64, 0, 5)
	for _, a := range plan.Assignments {
		got = append(got, a.UserID)
	}
	assert.Equal(t, []int64{1, 2, 1, 2, 1}, got)
	assert.Equal(t, map[int64]int{1: 3, 2: 2}, plan.Workload)
}

func TestSchedule_SkipsPositionsWhenNobodyEligible(t *testing.T) {
	s := New(Snapshot{
		People: people(1),
		Slots:  hourly(3),
	}, Options{MaxAssignmentsPerPerson: 1})

	plan := s.Schedule()

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, []int64{2, 3}, plan.SkippedPositionIDs)
}

func TestSchedule_RespectsTimeConflicts(t *testing.T) {
	morning := Interval{Start: 8 * 60, End: 10 * 60}
	snapshot := Snapshot{
		People: []Person{
			{UserID: 1, Busy: []Interval{{Start: 9 * 60, End: 11 * 60}}},
			{UserID: 2},
		},
		Slots: slots(2, morning),
	}

	plan := New(snapshot, Options{}).Schedule()

	// 1 号已有 09:00-11:00 的安排，2 号只能接一个早班，第二个岗位被跳过
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, int64(2), plan.Assignments[0].UserID)
	assert.Equal(t, []int64{2}, plan.SkippedPositionIDs)

	// 该选项不会放宽时间冲突的检查
	plan = New(snapshot, Options{AllowOverlappingShifts: true}).Schedule()
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, []int64{2}, plan.SkippedPositionIDs)
}

func TestSchedule_ExperienceFavoursSeniors(t *testing.T) {
	snapshot := Snapshot{
		People: []Person{
			{UserID: 1},
			{UserID: 2, Senior: true},
		},
		Slots: hourly(3),
	}

	plan := New(snapshot, Options{OptimizeFor: OptimizeExperience}).Schedule()

	require.Len(t, plan.Assignments, 3)
	// 第一个岗位资深人员得分 -1，第二个岗位双方都是 0 分，按人员池顺序选 1 号
	assert.Equal(t, int64(2), plan.Assignments[0].UserID)
	assert.Equal(t, int64(1), plan.Assignments[1].UserID)
	assert.Equal(t, int64(2), plan.Assignments[2].UserID)

	plan = New(snapshot, Options{OptimizeFor: OptimizeWorkload}).Schedule()
	assert.Equal(t, int64(1), plan.Assignments[0].UserID)
}

func TestSchedule_AvailabilityBonus(t *testing.T) {
	snapshot := Snapshot{
		People: []Person{
			{UserID: 1, Availability: []Interval{{Start: 6 * 60, End: 8 * 60}}},
			{UserID: 2, Availability: []Interval{{Start: 8 * 60, End: 18 * 60}}},
		},
		Slots: slots(1, allDay),
	}

	plan := New(snapshot, Options{OptimizeFor: OptimizeAvailability}).Schedule()

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, int64(2), plan.Assignments[0].UserID)
}

func TestSchedule_PreferredSkillMatch(t *testing.T) {
	keyman := int64(2)
	snapshot := Snapshot{
		People: people(1, 2),
		Slots:  []Slot{{PositionID: 1, PositionNumber: 1, KeymanID: &keyman, Hours: allDay}},
	}

	plan := New(snapshot, Options{PreferredSkillMatch: true}).Schedule()
	assert.Equal(t, int64(2), plan.Assignments[0].UserID)

	plan = New(snapshot, Options{PreferredSkillMatch: false}).Schedule()
	assert.Equal(t, int64(1), plan.Assignments[0].UserID)
}

func TestSchedule_ProcessesSlotsInPositionOrder(t *testing.T) {
	snapshot := Snapshot{
		People: people(1, 2),
		Slots: []Slot{
			{PositionID: 9, PositionNumber: 2, Hours: allDay},
			{PositionID: 4, PositionNumber: 1, Hours: allDay},
		},
	}

	plan := New(snapshot, Options{}).Schedule()

	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, int64(4), plan.Assignments[0].PositionID)
	assert.Equal(t, int64(1), plan.Assignments[0].UserID)
	assert.Equal(t, int64(9), plan.Assignments[1].PositionID)
}

func TestNew_CopiesSnapshot(t *testing.T) {
	snapshot := Snapshot{
		People: []Person{{UserID: 1, Busy: []Interval{}}},
		Slots:  slots(1, allDay),
	}
	s := New(snapshot, Options{})

	snapshot.People[0].Busy = append(snapshot.People[0].Busy, allDay)
	snapshot.Slots[0].PositionID = 99

	plan := s.Schedule()
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, int64(1), plan.Assignments[0].PositionID)
	assert.Equal(t, int64(1), plan.Assignments[0].UserID)
}

func TestSchedule_EmptyPool(t *testing.T) {
	plan := New(Snapshot{Slots: slots(2, allDay)}, Options{}).Schedule()

	assert.Empty(t, plan.Assignments)
	assert.Empty(t, plan.Workload)
	assert.Equal(t, []int64{1, 2}, plan.SkippedPositionIDs)
}
