package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type PermissionStore interface {
	// GetEventPermission 在没有权限记录时返回 sql.ErrNoRows
	GetEventPermission(ctx context.Context, eventID int64, userID int64) (*domain.EventPermission, error)
}

// Actor 是已经通过认证的调用者
type Actor struct {
	UserID int64
	Role   domain.Role
}

// Resolver 在一次请求内解析调用者的活动权限，同一个活动只查询一次存储。
// Resolver 不是并发安全的，每个请求应当创建自己的 Resolver。
type Resolver struct {
	store PermissionStore
	actor Actor
	cache map[int64]*domain.EventPermission // eventID -> 权限，nil 表示没有权限记录
}

func NewResolver(store PermissionStore, actor Actor) *Resolver {
	return &Resolver{
		store: store,
		actor: actor,
		cache: make(map[int64]*domain.EventPermission),
	}
}

func (r *Resolver) Actor() Actor {
	return r.actor
}

// Permission 返回调用者在活动中的权限，没有权限时返回 nil, nil。
// 全局管理员在任何活动中都视为没有范围限制的 OWNER。
func (r *Resolver) Permission(ctx context.Context, eventID int64) (*domain.EventPermission, error) {
	if perm, ok := r.cache[eventID]; ok {
		return perm, nil
	}

	if r.actor.Role == domain.RoleAdmin {
		perm := &domain.EventPermission{
			EventID: eventID,
			UserID:  r.actor.UserID,
			Role:    domain.EventRoleOwner,
		}
		r.cache[eventID] = perm
		return perm, nil
	}

	perm, err := r.store.GetEventPermission(ctx, eventID, r.actor.UserID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			r.cache[eventID] = nil
			return nil, nil
		default:
			return nil, domain.ErrIntegrity.Wrap(err)
		}
	}

	r.cache[eventID] = perm
	return perm, nil
}

// Resolve 当且仅当调用者的角色等级不低于 required 时返回其权限
func (r *Resolver) Resolve(ctx context.Context, eventID int64, required domain.EventRole) (*domain.EventPermission, error) {
	perm, err := r.Permission(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if perm == nil || !perm.Role.AtLeast(required) {
		return nil, domain.ErrAccessDenied.WithDetail("requiredRole", required)
	}
	return perm, nil
}

// RequireAttendantManager 要求调用者能够管理整个活动的人员名单
func (r *Resolver) RequireAttendantManager(ctx context.Context, eventID int64) (*domain.EventPermission, error) {
	perm, err := r.Resolve(ctx, eventID, domain.EventRoleOverseer)
	if err != nil {
		return nil, err
	}
	if !CanManageAttendants(perm) {
		return nil, domain.ErrOutOfScope
	}
	return perm, nil
}

// RequirePosition 要求调用者能够管理 pos 所在的岗位
func (r *Resolver) RequirePosition(ctx context.Context, pos *domain.Position) (*domain.EventPermission, error) {
	perm, err := r.Resolve(ctx, pos.EventID, domain.EventRoleOverseer)
	if err != nil {
		return nil, err
	}
	if !CanManagePosition(perm, pos) {
		return nil, domain.ErrOutOfScope.WithDetail("positionID", pos.ID)
	}
	return perm, nil
}

// RequireAssignmentEditor 要求调用者能够修改 a，pos 是 a 所在的岗位
func (r *Resolver) RequireAssignmentEditor(ctx context.Context, a *domain.Assignment, pos *domain.Position) (*domain.EventPermission, error) {
	perm, err := r.Resolve(ctx, a.EventID, domain.EventRoleKeyman)
	if err != nil {
		return nil, err
	}
	if !CanEditAssignment(perm, r.actor.UserID, a, pos) {
		return nil, domain.ErrOutOfScope.WithDetail("assignmentID", a.ID)
	}
	return perm, nil
}

func (r *Resolver) RequireEventManager(ctx context.Context, eventID int64) (*domain.EventPermission, error) {
	return r.Resolve(ctx, eventID, domain.EventRoleManager)
}

func (r *Resolver) RequireOwner(ctx context.Context, eventID int64) (*domain.EventPermission, error) {
	return r.Resolve(ctx, eventID, domain.EventRoleOwner)
}
