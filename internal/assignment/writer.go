package assignment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

type CreateRequest struct {
	UserID     int64
	PositionID int64
	ShiftID    *int64
	ShiftStart string
	ShiftEnd   string
	Status     domain.AssignmentStatus // 为空时为 ASSIGNED
	Notes      string
}

// UpdateRequest 中为 nil 的字段保持不变
type UpdateRequest struct {
	UserID     *int64
	PositionID *int64
	ShiftID    *int64
	ShiftStart *string
	ShiftEnd   *string
	Status     *domain.AssignmentStatus
	Notes      *string
}

// onlyStatusOrNotes 判断请求是否只修改状态和备注，KEYMAN 只能做这两种修改
func (r UpdateRequest) onlyStatusOrNotes() bool {
	return r.UserID == nil && r.PositionID == nil && r.ShiftID == nil && r.ShiftStart == nil && r.ShiftEnd == nil
}

// HasConflict 判断 userID 在活动中是否已有与 [start, end) 重叠的安排，excludeID 为 0 表示不排除任何安排
func (s *Service) HasConflict(ctx context.Context, eventID int64, userID int64, start string, end string, excludeID int64) (bool, error) {
	candidate, err := scheduler.NewInterval(start, end)
	if err != nil {
		return false, err
	}

	existing, err := s.store.GetUserAssignmentsInEvent(ctx, eventID, userID)
	if err != nil {
		return false, domain.ErrIntegrity.Wrap(err)
	}

	return scheduler.HasConflict(existing, candidate, excludeID), nil
}

// checkConflicts 在存在冲突时返回带有冲突数量的错误
func (s *Service) checkConflicts(ctx context.Context, eventID int64, userID int64, candidate scheduler.Interval, excludeID int64) error {
	existing, err := s.store.GetUserAssignmentsInEvent(ctx, eventID, userID)
	if err != nil {
		return domain.ErrIntegrity.Wrap(err)
	}

	conflicts := scheduler.FindConflicts(existing, candidate, excludeID)
	if len(conflicts) > 0 {
		conflictRejections.WithLabelValues("detector").Inc()
		return domain.ErrConflictingAssignment.WithDetail("conflicts", len(conflicts))
	}
	return nil
}

// Create 创建单个安排
func (s *Service) Create(ctx context.Context, rv *access.Resolver, eventID int64, req CreateRequest) (a *domain.Assignment, err error) {
	defer func() { logWrite("create", eventID, 1, err) }()

	if _, err := rv.Resolve(ctx, eventID, domain.EventRoleOverseer); err != nil {
		return nil, err
	}

	status, err := normalizeStatus(req.Status)
	if err != nil {
		return nil, err
	}

	candidate, err := scheduler.NewInterval(req.ShiftStart, req.ShiftEnd)
	if err != nil {
		return nil, err
	}

	if err := s.requireAttendant(ctx, eventID, req.UserID); err != nil {
		return nil, err
	}

	pos, err := s.loadActivePosition(ctx, eventID, req.PositionID)
	if err != nil {
		return nil, err
	}
	if err := validateShift(pos, req.ShiftID); err != nil {
		return nil, err
	}

	if _, err := rv.RequirePosition(ctx, pos); err != nil {
		return nil, err
	}

	if status.OccupiesTime() {
		if err := s.checkConflicts(ctx, eventID, req.UserID, candidate, 0); err != nil {
			return nil, err
		}
	}

	actorID := rv.Actor().UserID
	a = &domain.Assignment{
		EventID:    eventID,
		UserID:     req.UserID,
		PositionID: pos.ID,
		ShiftID:    req.ShiftID,
		ShiftStart: candidate.StartClock(),
		ShiftEnd:   candidate.EndClock(),
		Status:     status,
		Notes:      req.Notes,
		AssignedBy: &actorID,
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		return nil, storeError(err)
	}

	s.notify(ctx, eventID, []*domain.Assignment{a})
	return a, nil
}

// Update 修改安排，已完成的安排不能再被修改
func (s *Service) Update(ctx context.Context, rv *access.Resolver, eventID int64, assignmentID int64, req UpdateRequest) (updated *domain.Assignment, err error) {
	defer func() { logWrite("update", eventID, 1, err) }()

	current, err := s.loadAssignment(ctx, eventID, assignmentID)
	if err != nil {
		return nil, err
	}

	pos, err := s.store.GetPositionByID(ctx, current.PositionID)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}

	perm, err := rv.RequireAssignmentEditor(ctx, current, pos)
	if err != nil {
		return nil, err
	}

	if current.Status == domain.AssignmentCompleted {
		return nil, domain.ErrCompletedAssignment
	}

	if perm.Role == domain.EventRoleKeyman && !req.onlyStatusOrNotes() {
		return nil, domain.ErrAccessDenied.WithDetail("reason", "KEYMAN 只能修改自己安排的状态和备注")
	}

	next := *current

	if req.PositionID != nil && *req.PositionID != current.PositionID {
		newPos, err := s.loadActivePosition(ctx, eventID, *req.PositionID)
		if err != nil {
			return nil, err
		}
		if _, err := rv.RequirePosition(ctx, newPos); err != nil {
			return nil, err
		}
		pos = newPos
		next.PositionID = newPos.ID
		// 班次属于原来的岗位，换岗位时一并清除
		next.ShiftID = nil
	}

	if req.ShiftID != nil {
		if err := validateShift(pos, req.ShiftID); err != nil {
			return nil, err
		}
		next.ShiftID = req.ShiftID
	}

	if req.UserID != nil && *req.UserID != current.UserID {
		if err := s.requireAttendant(ctx, eventID, *req.UserID); err != nil {
			return nil, err
		}
		next.UserID = *req.UserID
	}

	if req.ShiftStart != nil {
		next.ShiftStart = *req.ShiftStart
	}
	if req.ShiftEnd != nil {
		next.ShiftEnd = *req.ShiftEnd
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus.WithDetail("status", *req.Status)
		}
		next.Status = *req.Status
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}

	timeChanged := next.ShiftStart != current.ShiftStart || next.ShiftEnd != current.ShiftEnd
	reactivated := !current.Status.OccupiesTime() && next.Status.OccupiesTime()

	if timeChanged || next.UserID != current.UserID || reactivated {
		candidate, err := scheduler.NewInterval(next.ShiftStart, next.ShiftEnd)
		if err != nil {
			return nil, err
		}
		next.ShiftStart, next.ShiftEnd = candidate.StartClock(), candidate.EndClock()

		if next.Status.OccupiesTime() {
			if err := s.checkConflicts(ctx, eventID, next.UserID, candidate, current.ID); err != nil {
				return nil, err
			}
		}
	}

	next.UpdatedAt = s.now()
	if err := s.store.UpdateAssignment(ctx, &next); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrEditConflict
		default:
			return nil, storeError(err)
		}
	}

	return &next, nil
}

// Delete 删除安排，已完成的安排不能被删除
func (s *Service) Delete(ctx context.Context, rv *access.Resolver, eventID int64, assignmentID int64) (err error) {
	defer func() { logWrite("delete", eventID, 1, err) }()

	a, err := s.loadAssignment(ctx, eventID, assignmentID)
	if err != nil {
		return err
	}

	pos, err := s.store.GetPositionByID(ctx, a.PositionID)
	if err != nil {
		return domain.ErrIntegrity.Wrap(err)
	}
	if _, err := rv.RequirePosition(ctx, pos); err != nil {
		return err
	}

	if a.Status == domain.AssignmentCompleted {
		return domain.ErrCompletedAssignment
	}

	if err := s.store.DeleteAssignment(ctx, a.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrAssignmentNotFound
		default:
			return storeError(err)
		}
	}

	return nil
}
