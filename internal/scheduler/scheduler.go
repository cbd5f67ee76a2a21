package scheduler

import (
	"sort"
)

type Scheduler struct {
	options Options
	people  []Person // 人员池，顺序即平局时的优先顺序
	slots   []Slot
}

// New 复制一份快照，调用方之后对快照的修改不会影响排班
func New(snapshot Snapshot, options Options) *Scheduler {
	if options.OptimizeFor == "" {
		options.OptimizeFor = OptimizeWorkload
	}

	s := &Scheduler{
		options: options,
		people:  make([]Person, len(snapshot.People)),
		slots:   make([]Slot, len(snapshot.Slots)),
	}

	for i, p := range snapshot.People {
		s.people[i] = Person{
			UserID:       p.UserID,
			Senior:       p.Senior,
			Availability: append([]Interval(nil), p.Availability...),
			Busy:         append([]Interval(nil), p.Busy...),
		}
	}
	copy(s.slots, snapshot.Slots)

	// 按岗位编号处理，编号相同时按 ID
	sort.SliceStable(s.slots, func(i, j int) bool {
		if s.slots[i].PositionNumber != s.slots[j].PositionNumber {
			return s.slots[i].PositionNumber < s.slots[j].PositionNumber
		}
		return s.slots[i].PositionID < s.slots[j].PositionID
	})

	return s
}

// Schedule 贪心地为每个岗位挑选当前得分最低的人，结果是确定的
func (s *Scheduler) Schedule() *Plan {
	plan := &Plan{
		Assignments:        make([]PlannedAssignment, 0, len(s.slots)),
		Workload:           make(map[int64]int, len(s.people)),
		SkippedPositionIDs: make([]int64, 0),
	}

	planned := make(map[int64][]Interval, len(s.people))
	for _, p := range s.people {
		plan.Workload[p.UserID] = 0
	}

	for _, slot := range s.slots {
		chosen := -1
		bestScore := 0

		for i := range s.people {
			person := &s.people[i]
			if !s.eligible(person, slot, plan.Workload[person.UserID], planned[person.UserID]) {
				continue
			}

			score := s.score(person, slot, plan.Workload[person.UserID])
			// 只有严格更低的分数才会替换，保证平局时按人员池顺序选择
			if chosen == -1 || score < bestScore {
				chosen = i
				bestScore = score
			}
		}

		if chosen == -1 {
			plan.SkippedPositionIDs = append(plan.SkippedPositionIDs, slot.PositionID)
			continue
		}

		person := s.people[chosen]
		plan.Assignments = append(plan.Assignments, PlannedAssignment{
			PositionID: slot.PositionID,
			UserID:     person.UserID,
			ShiftID:    slot.ShiftID,
			Hours:      slot.Hours,
		})
		plan.Workload[person.UserID]++
		planned[person.UserID] = append(planned[person.UserID], slot.Hours)
	}

	return plan
}
