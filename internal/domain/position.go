package domain

import (
	"sort"
	"time"
)

type Shift struct {
	ID         int64   `json:"id"`
	PositionID int64   `json:"positionID"`
	Name       string  `json:"name"`
	StartTime  *string `json:"startTime"`
	EndTime    *string `json:"endTime"`
	IsAllDay   bool    `json:"isAllDay"`
	Sequence   int32   `json:"sequence"`
}

type Position struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"eventID"`
	PositionNumber int32     `json:"positionNumber"`
	Name           string    `json:"name"`
	Department     string    `json:"department"`
	Description    string    `json:"description"`
	IsActive       bool      `json:"isActive"`
	OverseerID     *int64    `json:"overseerID"`
	KeymanID       *int64    `json:"keymanID"`
	Shifts         []Shift   `json:"shifts"`
	CreatedAt      time.Time `json:"createdAt"`
	Version        int32     `json:"-"`
}

// DeclaredHours 返回岗位自己声明的工作时间，即按 sequence 排序后的第一个有具体时间的班次
func (p *Position) DeclaredHours() (*Shift, bool) {
	shifts := make([]Shift, len(p.Shifts))
	copy(shifts, p.Shifts)
	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].Sequence < shifts[j].Sequence
	})

	for i := range shifts {
		if !shifts[i].IsAllDay && shifts[i].StartTime != nil && shifts[i].EndTime != nil {
			return &shifts[i], true
		}
	}
	return nil, false
}

// HasAllDayShift 判断岗位是否已经有全天班次
func (p *Position) HasAllDayShift() bool {
	for _, s := range p.Shifts {
		if s.IsAllDay {
			return true
		}
	}
	return false
}

// AcceptsShifts 判断在已有班次 existing 的基础上能否再加入 added：
// 全天班次只能单独存在，不能与其他任何班次共存
func AcceptsShifts(existing []Shift, added []Shift) bool {
	total := len(existing) + len(added)
	for _, s := range existing {
		if s.IsAllDay && total > 1 {
			return false
		}
	}
	for _, s := range added {
		if s.IsAllDay && total > 1 {
			return false
		}
	}
	return true
}

// NextSequence 返回新班次应使用的起始序号
func NextSequence(existing []Shift) int32 {
	var last int32
	for _, s := range existing {
		if s.Sequence > last {
			last = s.Sequence
		}
	}
	return last + 1
}
