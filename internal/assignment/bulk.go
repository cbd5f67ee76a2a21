package assignment

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

type BulkResult struct {
	Created     int                  `json:"created"`
	BatchID     string               `json:"batchID"`
	Assignments []*domain.Assignment `json:"assignments"`
}

// BatchConflict 描述批量请求中与已有安排或同批次前面的条目时间重叠的一项
type BatchConflict struct {
	Index  int   `json:"index"`
	UserID int64 `json:"userID"`
}

// CreateBulk 一次性创建多个安排，要么全部成功要么全部失败。
// 所有检查都在写入之前完成，批次内同一个人的时间重叠也视为冲突。
func (s *Service) CreateBulk(ctx context.Context, rv *access.Resolver, eventID int64, items []CreateRequest) (result *BulkResult, err error) {
	defer func() {
		created := 0
		if result != nil {
			created = result.Created
		}
		logWrite("bulk_create", eventID, created, err)
	}()

	if _, err := rv.Resolve(ctx, eventID, domain.EventRoleOverseer); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return &BulkResult{Assignments: make([]*domain.Assignment, 0)}, nil
	}

	statuses := make([]domain.AssignmentStatus, len(items))
	intervals := make([]scheduler.Interval, len(items))
	for i, item := range items {
		status, err := normalizeStatus(item.Status)
		if err != nil {
			return nil, withDetail(err, "index", i)
		}
		iv, err := scheduler.NewInterval(item.ShiftStart, item.ShiftEnd)
		if err != nil {
			return nil, withDetail(err, "index", i)
		}
		statuses[i] = status
		intervals[i] = iv
	}

	attendants, err := s.store.GetEventAttendants(ctx, eventID)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}
	onRoster := make(map[int64]struct{}, len(attendants))
	for _, att := range attendants {
		onRoster[att.UserID] = struct{}{}
	}

	positions, err := s.store.GetPositionsByEventID(ctx, eventID)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}
	activePositions := make(map[int64]*domain.Position, len(positions))
	for _, pos := range positions {
		if pos.IsActive {
			activePositions[pos.ID] = pos
		}
	}

	missingUserIDs := make([]int64, 0)
	invalidPositionIDs := make([]int64, 0)
	for _, item := range items {
		if _, ok := onRoster[item.UserID]; !ok && !slices.Contains(missingUserIDs, item.UserID) {
			missingUserIDs = append(missingUserIDs, item.UserID)
		}
		if _, ok := activePositions[item.PositionID]; !ok && !slices.Contains(invalidPositionIDs, item.PositionID) {
			invalidPositionIDs = append(invalidPositionIDs, item.PositionID)
		}
	}
	slices.Sort(missingUserIDs)
	slices.Sort(invalidPositionIDs)

	if len(missingUserIDs) > 0 {
		e := domain.ErrMissingAssociations.WithDetail("missingUserIDs", missingUserIDs)
		if len(invalidPositionIDs) > 0 {
			e = e.WithDetail("invalidPositionIDs", invalidPositionIDs)
		}
		return nil, e
	}
	if len(invalidPositionIDs) > 0 {
		return nil, domain.ErrInvalidPositions.WithDetail("invalidPositionIDs", invalidPositionIDs)
	}

	checked := make(map[int64]struct{})
	for i, item := range items {
		pos := activePositions[item.PositionID]
		if err := validateShift(pos, item.ShiftID); err != nil {
			return nil, withDetail(err, "index", i)
		}
		if _, ok := checked[pos.ID]; ok {
			continue
		}
		if _, err := rv.RequirePosition(ctx, pos); err != nil {
			return nil, err
		}
		checked[pos.ID] = struct{}{}
	}

	existing, err := s.store.GetAssignmentsByEventID(ctx, eventID)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}
	byUser := make(map[int64][]*domain.Assignment)
	for _, a := range existing {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	conflicts := make([]BatchConflict, 0)
	inBatch := make(map[int64][]scheduler.Interval)
	for i, item := range items {
		if !statuses[i].OccupiesTime() {
			continue
		}
		iv := intervals[i]
		if scheduler.HasConflict(byUser[item.UserID], iv, 0) || overlapsAny(inBatch[item.UserID], iv) {
			conflicts = append(conflicts, BatchConflict{Index: i, UserID: item.UserID})
		}
		inBatch[item.UserID] = append(inBatch[item.UserID], iv)
	}
	if len(conflicts) > 0 {
		conflictRejections.WithLabelValues("detector").Add(float64(len(conflicts)))
		return nil, domain.ErrConflictingAssignment.WithDetail("conflicts", conflicts)
	}

	batchID := uuid.NewString()
	actorID := rv.Actor().UserID
	assignments := make([]*domain.Assignment, 0, len(items))
	for i, item := range items {
		assignments = append(assignments, &domain.Assignment{
			EventID:    eventID,
			UserID:     item.UserID,
			PositionID: item.PositionID,
			ShiftID:    item.ShiftID,
			ShiftStart: intervals[i].StartClock(),
			ShiftEnd:   intervals[i].EndClock(),
			Status:     statuses[i],
			Notes:      item.Notes,
			BatchID:    &batchID,
			AssignedBy: &actorID,
		})
	}

	if err := s.store.CreateAssignments(ctx, assignments); err != nil {
		return nil, storeError(err)
	}

	s.notify(ctx, eventID, assignments)
	return &BulkResult{
		Created:     len(assignments),
		BatchID:     batchID,
		Assignments: assignments,
	}, nil
}

func overlapsAny(intervals []scheduler.Interval, candidate scheduler.Interval) bool {
	for _, iv := range intervals {
		if iv.Overlaps(candidate) {
			return true
		}
	}
	return false
}
