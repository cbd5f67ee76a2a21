package domain

import (
	"time"
)

type ShiftTemplateShift struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsAllDay  bool   `json:"isAllDay"`
}

type ShiftTemplate struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Shifts      []ShiftTemplateShift `json:"shifts"`
	CreatedAt   time.Time            `json:"createdAt"`
	Version     int32                `json:"-"`
}
