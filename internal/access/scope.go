package access

import (
	"slices"
	"strconv"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type TargetKind int

const (
	TargetPosition TargetKind = iota
	TargetDepartment
)

// Target 是范围判断的对象。岗位目标同时携带岗位所属的部门，部门目标只有部门名
type Target struct {
	Kind       TargetKind
	PositionID int64
	Department string
}

func PositionTarget(p *domain.Position) Target {
	return Target{Kind: TargetPosition, PositionID: p.ID, Department: p.Department}
}

func DepartmentTarget(department string) Target {
	return Target{Kind: TargetDepartment, Department: department}
}

// InScope 判断 target 是否落在权限的范围之内，无范围的权限总是通过。
// 未知的范围类型以及尚未定义规则的 STATION_RANGE 一律拒绝。
func InScope(perm *domain.EventPermission, target Target) bool {
	if perm == nil {
		return false
	}
	if !perm.Scoped() {
		return true
	}

	switch *perm.ScopeType {
	case domain.ScopePosition:
		if target.Kind != TargetPosition {
			return false
		}
		return slices.Contains(perm.ScopeIDs, strconv.FormatInt(target.PositionID, 10))
	case domain.ScopeDepartment:
		if target.Department == "" {
			return false
		}
		return slices.Contains(perm.ScopeIDs, target.Department)
	case domain.ScopeStationRange:
		return false
	default:
		return false
	}
}
