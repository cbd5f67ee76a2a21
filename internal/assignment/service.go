// Package assignment 负责安排的创建、修改、删除、批量创建和自动排班。
// 所有写操作在修改数据之前都会依次完成权限、范围、人员名单、岗位和时间冲突的检查。
package assignment

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

// exclusionViolation 是 PostgreSQL 排他约束冲突的错误码
const exclusionViolation = "23P01"

// AssignmentOverlapConstraint 是数据库中禁止同一个人时间重叠的约束名
const AssignmentOverlapConstraint = "assignments_no_overlap"

type Store interface {
	GetEventPermission(ctx context.Context, eventID int64, userID int64) (*domain.EventPermission, error)
	GetEventByID(ctx context.Context, id int64) (*domain.Event, error)
	GetPositionByID(ctx context.Context, id int64) (*domain.Position, error)
	GetPositionsByEventID(ctx context.Context, eventID int64) ([]*domain.Position, error)
	IsEventAttendant(ctx context.Context, eventID int64, userID int64) (bool, error)
	GetEventAttendants(ctx context.Context, eventID int64) ([]*domain.EventAttendant, error)

	GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error)
	GetAssignmentsByEventID(ctx context.Context, eventID int64) ([]*domain.Assignment, error)
	GetUserAssignmentsInEvent(ctx context.Context, eventID int64, userID int64) ([]*domain.Assignment, error)
	ListAssignments(ctx context.Context, eventID int64, filter domain.AssignmentFilter) ([]*domain.Assignment, int, error)
	CountAssignmentsByStatus(ctx context.Context, eventID int64) (map[domain.AssignmentStatus]int, error)

	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	CreateAssignments(ctx context.Context, as []*domain.Assignment) error
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error
	DeleteAssignment(ctx context.Context, id int64) error
	DeleteEventAssignments(ctx context.Context, eventID int64) (int64, error)
}

// Notifier 在安排创建成功后发送通知，通知失败不影响已经提交的数据
type Notifier interface {
	NotifyAssignments(ctx context.Context, eventID int64, assignments []*domain.Assignment)
}

type Config struct {
	DefaultShiftStart string
	DefaultShiftEnd   string
	AutoAssignNote    string
}

type Service struct {
	store    Store
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, cfg Config) *Service {
	if cfg.DefaultShiftStart == "" {
		cfg.DefaultShiftStart = "09:00"
	}
	if cfg.DefaultShiftEnd == "" {
		cfg.DefaultShiftEnd = "17:00"
	}
	if cfg.AutoAssignNote == "" {
		cfg.AutoAssignNote = "Auto-assigned by system"
	}

	return &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// storeError 将存储层的错误转换为业务错误，排他约束冲突视为时间冲突
func storeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		conflictRejections.WithLabelValues("constraint").Inc()
		return domain.ErrConflictingAssignment.WithDetail("constraint", pgErr.ConstraintName)
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	return domain.ErrIntegrity.Wrap(err)
}

func (s *Service) loadEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrEventNotFound
		default:
			return nil, domain.ErrIntegrity.Wrap(err)
		}
	}
	return event, nil
}

// loadAssignment 读取安排，不属于该活动的安排视为不存在
func (s *Service) loadAssignment(ctx context.Context, eventID int64, assignmentID int64) (*domain.Assignment, error) {
	a, err := s.store.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrAssignmentNotFound
		default:
			return nil, domain.ErrIntegrity.Wrap(err)
		}
	}
	if a.EventID != eventID {
		return nil, domain.ErrAssignmentNotFound
	}
	return a, nil
}

// loadActivePosition 读取岗位并确认它属于该活动且仍在启用
func (s *Service) loadActivePosition(ctx context.Context, eventID int64, positionID int64) (*domain.Position, error) {
	pos, err := s.store.GetPositionByID(ctx, positionID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrInvalidPosition.WithDetail("positionID", positionID)
		default:
			return nil, domain.ErrIntegrity.Wrap(err)
		}
	}
	if pos.EventID != eventID || !pos.IsActive {
		return nil, domain.ErrInvalidPosition.WithDetail("positionID", positionID)
	}
	return pos, nil
}

func (s *Service) requireAttendant(ctx context.Context, eventID int64, userID int64) error {
	ok, err := s.store.IsEventAttendant(ctx, eventID, userID)
	if err != nil {
		return domain.ErrIntegrity.Wrap(err)
	}
	if !ok {
		return domain.ErrNotAssociated.WithDetail("userID", userID)
	}
	return nil
}

// validateShift 确认 shiftID 为空或者是 pos 下的班次
func validateShift(pos *domain.Position, shiftID *int64) error {
	if shiftID == nil {
		return nil
	}
	for _, shift := range pos.Shifts {
		if shift.ID == *shiftID {
			return nil
		}
	}
	return domain.ErrInvalidPosition.WithDetail("shiftID", *shiftID)
}

func normalizeStatus(status domain.AssignmentStatus) (domain.AssignmentStatus, error) {
	if status == "" {
		return domain.AssignmentAssigned, nil
	}
	if !status.Valid() {
		return "", domain.ErrInvalidStatus.WithDetail("status", status)
	}
	return status, nil
}

// withDetail 为业务错误附加信息，其他错误原样返回
func withDetail(err error, key string, value any) error {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr.WithDetail(key, value)
	}
	return err
}

func (s *Service) notify(ctx context.Context, eventID int64, assignments []*domain.Assignment) {
	if s.notifier == nil || len(assignments) == 0 {
		return
	}
	// 通知是尽力而为的，不能因为请求结束而被取消
	s.notifier.NotifyAssignments(context.WithoutCancel(ctx), eventID, assignments)
}

func logWrite(op string, eventID int64, count int, err error) {
	result := "ok"
	if err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			result = domainErr.Code
		} else {
			result = "error"
		}
	}
	assignmentWrites.WithLabelValues(op, result).Inc()
	if err != nil {
		slog.Debug("安排写入被拒绝", "op", op, "eventID", eventID, "result", result)
		return
	}
	slog.Info("安排写入成功", "op", op, "eventID", eventID, "count", count)
}
