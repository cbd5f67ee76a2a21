package domain

import "time"

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentDeclined  AssignmentStatus = "DECLINED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentNoShow    AssignmentStatus = "NO_SHOW"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentConfirmed, AssignmentDeclined, AssignmentCompleted, AssignmentNoShow:
		return true
	default:
		return false
	}
}

// OccupiesTime 表示处于该状态的安排是否占用时间，已拒绝的安排不参与冲突检测
func (s AssignmentStatus) OccupiesTime() bool {
	return s != AssignmentDeclined
}

type Assignment struct {
	ID         int64            `json:"id"`
	EventID    int64            `json:"eventID"`
	UserID     int64            `json:"userID"`
	PositionID int64            `json:"positionID"`
	ShiftID    *int64           `json:"shiftID"`
	ShiftStart string           `json:"shiftStart"`
	ShiftEnd   string           `json:"shiftEnd"`
	Status     AssignmentStatus `json:"status"`
	Notes      string           `json:"notes"`
	BatchID    *string          `json:"batchID"` // 批量或自动排班时同一次提交的所有记录共享同一个 batchID
	AssignedBy *int64           `json:"assignedBy"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Version    int32            `json:"-"`
}

type AssignmentFilter struct {
	Status     *AssignmentStatus
	PositionID *int64
	UserID     *int64
	Limit      int
	Offset     int
}
