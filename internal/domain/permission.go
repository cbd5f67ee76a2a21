package domain

import "time"

// EventRole 是用户在某个活动内的角色，各角色之间是全序的
type EventRole string

const (
	EventRoleOwner    EventRole = "OWNER"
	EventRoleManager  EventRole = "MANAGER"
	EventRoleOverseer EventRole = "OVERSEER"
	EventRoleKeyman   EventRole = "KEYMAN"
	EventRoleViewer   EventRole = "VIEWER"
)

// eventRoleRanks 是角色等级的唯一来源，所有的比较都应该通过 Rank 或 AtLeast 完成
var eventRoleRanks = map[EventRole]int{
	EventRoleOwner:    5,
	EventRoleManager:  4,
	EventRoleOverseer: 3,
	EventRoleKeyman:   2,
	EventRoleViewer:   1,
}

// Rank 返回角色的等级，未知角色返回 0
func (r EventRole) Rank() int {
	return eventRoleRanks[r]
}

func (r EventRole) Valid() bool {
	return r.Rank() > 0
}

// AtLeast 判断 r 的等级是否不低于 required，任意一方是未知角色时都返回 false
func (r EventRole) AtLeast(required EventRole) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r.Rank() >= required.Rank()
}

type ScopeType string

const (
	ScopeDepartment   ScopeType = "DEPARTMENT"
	ScopeStationRange ScopeType = "STATION_RANGE"
	ScopePosition     ScopeType = "POSITION"
)

func (s ScopeType) Valid() bool {
	switch s {
	case ScopeDepartment, ScopeStationRange, ScopePosition:
		return true
	default:
		return false
	}
}

type EventPermission struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"eventID"`
	UserID    int64      `json:"userID"`
	Role      EventRole  `json:"role"`
	ScopeType *ScopeType `json:"scopeType"` // 为空表示权限作用于整个活动
	ScopeIDs  []string   `json:"scopeIDs"`
	GrantedBy *int64     `json:"grantedBy"`
	CreatedAt time.Time  `json:"createdAt"`
	Version   int32      `json:"-"`
}

func (p *EventPermission) Scoped() bool {
	return p.ScopeType != nil
}

// LeavesNoOwner 判断把一个角色为 current 的权限改为 next（next 为 nil 表示撤销）之后，
// 活动是否会失去最后一个 OWNER
func LeavesNoOwner(ownerCount int, current EventRole, next *EventRole) bool {
	if current != EventRoleOwner {
		return false
	}
	if next != nil && *next == EventRoleOwner {
		return false
	}
	return ownerCount <= 1
}
