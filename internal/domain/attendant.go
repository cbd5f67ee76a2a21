package domain

import "time"

// AvailabilityWindow 是一段可以值班的时间，格式为 HH:MM
type AvailabilityWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// EventAttendant 表示某个用户被加入了某个活动的人员名单
type EventAttendant struct {
	EventID      int64                `json:"eventID"`
	UserID       int64                `json:"userID"`
	FullName     string               `json:"fullName"`
	Role         Role                 `json:"role"`
	Availability []AvailabilityWindow `json:"availability"`
	CreatedAt    time.Time            `json:"createdAt"`
}
