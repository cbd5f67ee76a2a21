package assignment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

type AutoAssignResult struct {
	AssignmentsCreated   int                  `json:"assignmentsCreated"`
	BatchID              string               `json:"batchID"`
	Assignments          []*domain.Assignment `json:"assignments"`
	WorkloadDistribution map[int64]int        `json:"workloadDistribution"`
	SkippedPositionIDs   []int64              `json:"skippedPositionIDs"`
}

// AutoAssign 为活动中所有还没有人的启用岗位自动分配人员。
// 排班在内存中完成，结果作为一个批次一次性写入。
func (s *Service) AutoAssign(ctx context.Context, rv *access.Resolver, eventID int64, opts scheduler.Options) (result *AutoAssignResult, err error) {
	defer func() {
		created := 0
		if result != nil {
			created = result.AssignmentsCreated
		}
		logWrite("auto_assign", eventID, created, err)
	}()

	if _, err := rv.RequireAttendantManager(ctx, eventID); err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Slots) == 0 {
		return nil, domain.ErrNoUnassignedPositions
	}

	plan := scheduler.New(snapshot, opts).Schedule()
	slog.Debug("自动排班完成", "eventID", eventID, "planned", len(plan.Assignments), "skipped", len(plan.SkippedPositionIDs))
	if len(plan.Assignments) == 0 {
		return nil, domain.ErrNoEligiblePeople.WithDetail("skippedPositionIDs", plan.SkippedPositionIDs)
	}
	autoAssignPlanned.Observe(float64(len(plan.Assignments)))

	batchID := uuid.NewString()
	actorID := rv.Actor().UserID
	assignments := make([]*domain.Assignment, 0, len(plan.Assignments))
	for _, pa := range plan.Assignments {
		assignments = append(assignments, &domain.Assignment{
			EventID:    eventID,
			UserID:     pa.UserID,
			PositionID: pa.PositionID,
			ShiftID:    pa.ShiftID,
			ShiftStart: pa.Hours.StartClock(),
			ShiftEnd:   pa.Hours.EndClock(),
			Status:     domain.AssignmentAssigned,
			Notes:      s.cfg.AutoAssignNote,
			BatchID:    &batchID,
			AssignedBy: &actorID,
		})
	}

	if err := s.store.CreateAssignments(ctx, assignments); err != nil {
		return nil, storeError(err)
	}

	s.notify(ctx, eventID, assignments)
	return &AutoAssignResult{
		AssignmentsCreated:   len(assignments),
		BatchID:              batchID,
		Assignments:          assignments,
		WorkloadDistribution: plan.Workload,
		SkippedPositionIDs:   plan.SkippedPositionIDs,
	}, nil
}

// buildSnapshot 读取人员名单、岗位和已有安排。
// 只有已拒绝安排的岗位仍然视为没有人。
func (s *Service) buildSnapshot(ctx context.Context, event *domain.Event) (scheduler.Snapshot, error) {
	attendants, err := s.store.GetEventAttendants(ctx, event.ID)
	if err != nil {
		return scheduler.Snapshot{}, domain.ErrIntegrity.Wrap(err)
	}

	positions, err := s.store.GetPositionsByEventID(ctx, event.ID)
	if err != nil {
		return scheduler.Snapshot{}, domain.ErrIntegrity.Wrap(err)
	}

	existing, err := s.store.GetAssignmentsByEventID(ctx, event.ID)
	if err != nil {
		return scheduler.Snapshot{}, domain.ErrIntegrity.Wrap(err)
	}

	byUser := make(map[int64][]*domain.Assignment)
	staffed := make(map[int64]struct{})
	for _, a := range existing {
		byUser[a.UserID] = append(byUser[a.UserID], a)
		if a.Status.OccupiesTime() {
			staffed[a.PositionID] = struct{}{}
		}
	}

	snapshot := scheduler.Snapshot{
		People: make([]scheduler.Person, 0, len(attendants)),
		Slots:  make([]scheduler.Slot, 0, len(positions)),
	}

	for _, att := range attendants {
		snapshot.People = append(snapshot.People, scheduler.Person{
			UserID:       att.UserID,
			Senior:       att.Role.IsSenior(),
			Availability: availabilityIntervals(att.Availability),
			Busy:         scheduler.BusyIntervals(byUser[att.UserID]),
		})
	}

	for _, pos := range positions {
		if !pos.IsActive {
			continue
		}
		if _, ok := staffed[pos.ID]; ok {
			continue
		}

		slot := scheduler.Slot{
			PositionID:     pos.ID,
			PositionNumber: pos.PositionNumber,
			KeymanID:       pos.KeymanID,
		}
		slot.ShiftID, slot.Hours = s.positionHours(event, pos)
		snapshot.Slots = append(snapshot.Slots, slot)
	}

	return snapshot, nil
}

// positionHours 决定岗位的值班时间：
// 优先使用岗位第一个有具体时间的班次，其次是活动的每日时间，最后是配置的默认时间
func (s *Service) positionHours(event *domain.Event, pos *domain.Position) (*int64, scheduler.Interval) {
	if shift, ok := pos.DeclaredHours(); ok {
		if iv, err := scheduler.NewInterval(*shift.StartTime, *shift.EndTime); err == nil {
			id := shift.ID
			return &id, iv
		}
	}

	if event.StartTime != nil && event.EndTime != nil {
		if iv, err := scheduler.NewInterval(*event.StartTime, *event.EndTime); err == nil {
			return nil, iv
		}
	}

	if iv, err := scheduler.NewInterval(s.cfg.DefaultShiftStart, s.cfg.DefaultShiftEnd); err == nil {
		return nil, iv
	}

	slog.Warn("默认值班时间配置无效，使用 09:00-17:00", "start", s.cfg.DefaultShiftStart, "end", s.cfg.DefaultShiftEnd)
	return nil, scheduler.Interval{Start: 9 * 60, End: 17 * 60}
}

// availabilityIntervals 忽略格式错误的空闲时间
func availabilityIntervals(windows []domain.AvailabilityWindow) []scheduler.Interval {
	intervals := make([]scheduler.Interval, 0, len(windows))
	for _, w := range windows {
		iv, err := scheduler.NewInterval(w.Start, w.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals
}
