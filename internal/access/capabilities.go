package access

import "github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"

// CanManageAttendants: OWNER、MANAGER 或者没有范围限制的 OVERSEER 才能管理整个活动的人员名单
func CanManageAttendants(perm *domain.EventPermission) bool {
	if perm == nil {
		return false
	}
	switch perm.Role {
	case domain.EventRoleOwner, domain.EventRoleManager:
		return true
	case domain.EventRoleOverseer:
		return !perm.Scoped()
	default:
		return false
	}
}

// CanManagePosition 判断权限能否管理某个岗位。有范围限制的 OVERSEER 只能管理范围内仍在启用的岗位
func CanManagePosition(perm *domain.EventPermission, pos *domain.Position) bool {
	if perm == nil || pos == nil {
		return false
	}
	switch perm.Role {
	case domain.EventRoleOwner, domain.EventRoleManager:
		return true
	case domain.EventRoleOverseer:
		if !perm.Scoped() {
			return true
		}
		return pos.IsActive && InScope(perm, PositionTarget(pos))
	default:
		return false
	}
}

// CanEditAssignment 判断 actorID 能否修改某条安排，pos 是这条安排所在的岗位。
// KEYMAN 只能修改自己的安排。
func CanEditAssignment(perm *domain.EventPermission, actorID int64, a *domain.Assignment, pos *domain.Position) bool {
	if perm == nil || a == nil {
		return false
	}
	switch perm.Role {
	case domain.EventRoleOwner, domain.EventRoleManager:
		return true
	case domain.EventRoleOverseer:
		if !perm.Scoped() {
			return true
		}
		return CanManagePosition(perm, pos)
	case domain.EventRoleKeyman:
		return a.UserID == actorID
	default:
		return false
	}
}

func CanManageEvent(perm *domain.EventPermission) bool {
	return perm != nil && perm.Role.AtLeast(domain.EventRoleManager)
}

func CanDeleteEvent(perm *domain.EventPermission) bool {
	return perm != nil && perm.Role.AtLeast(domain.EventRoleOwner)
}

func CanManagePermissions(perm *domain.EventPermission) bool {
	return perm != nil && perm.Role.AtLeast(domain.EventRoleOwner)
}
