package assignment

import (
	"context"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type ListResult struct {
	Total       int                  `json:"total"`
	Assignments []*domain.Assignment `json:"assignments"`
}

type Stats struct {
	Total    int                             `json:"total"`
	ByStatus map[domain.AssignmentStatus]int `json:"byStatus"`
}

// List 返回活动中的安排，所有有权限查看该活动的人都可以调用
func (s *Service) List(ctx context.Context, rv *access.Resolver, eventID int64, filter domain.AssignmentFilter) (*ListResult, error) {
	if _, err := rv.Resolve(ctx, eventID, domain.EventRoleViewer); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus.WithDetail("status", *filter.Status)
	}

	assignments, total, err := s.store.ListAssignments(ctx, eventID, filter)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}

	return &ListResult{Total: total, Assignments: assignments}, nil
}

func (s *Service) Get(ctx context.Context, rv *access.Resolver, eventID int64, assignmentID int64) (*domain.Assignment, error) {
	if _, err := rv.Resolve(ctx, eventID, domain.EventRoleViewer); err != nil {
		return nil, err
	}
	return s.loadAssignment(ctx, eventID, assignmentID)
}

func (s *Service) Stats(ctx context.Context, rv *access.Resolver, eventID int64) (*Stats, error) {
	if _, err := rv.Resolve(ctx, eventID, domain.EventRoleViewer); err != nil {
		return nil, err
	}

	counts, err := s.store.CountAssignmentsByStatus(ctx, eventID)
	if err != nil {
		return nil, domain.ErrIntegrity.Wrap(err)
	}

	stats := &Stats{ByStatus: make(map[domain.AssignmentStatus]int)}
	for _, status := range []domain.AssignmentStatus{
		domain.AssignmentAssigned,
		domain.AssignmentConfirmed,
		domain.AssignmentDeclined,
		domain.AssignmentCompleted,
		domain.AssignmentNoShow,
	} {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// ClearEvent 删除活动中所有未完成的安排，返回删除的数量
func (s *Service) ClearEvent(ctx context.Context, rv *access.Resolver, eventID int64) (deleted int64, err error) {
	defer func() { logWrite("clear", eventID, int(deleted), err) }()

	if _, err := rv.RequireEventManager(ctx, eventID); err != nil {
		return 0, err
	}

	deleted, err = s.store.DeleteEventAssignments(ctx, eventID)
	if err != nil {
		return 0, domain.ErrIntegrity.Wrap(err)
	}
	return deleted, nil
}
