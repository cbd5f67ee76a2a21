package domain

import "time"

type EventStatus string

const (
	EventStatusUpcoming EventStatus = "upcoming"
	EventStatusCurrent  EventStatus = "current"
	EventStatusPast     EventStatus = "past"
)

const dateLayout = "2006-01-02"

type Event struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	StartTime   *string     `json:"startTime"` // 默认的班次开始时间（HH:MM），为空时使用配置中的默认值
	EndTime     *string     `json:"endTime"`
	Status      EventStatus `json:"status"`
	CreatedBy   int64       `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	Version     int32       `json:"-"`
}

// StatusAt 根据 now 和活动的日期窗口推导活动状态，只比较日期部分
func (e *Event) StatusAt(now time.Time) EventStatus {
	today := now.Format(dateLayout)
	switch {
	case today < e.StartDate.Format(dateLayout):
		return EventStatusUpcoming
	case today > e.EndDate.Format(dateLayout):
		return EventStatusPast
	default:
		return EventStatusCurrent
	}
}

// RefreshStatus 将 Status 字段设置为 now 时刻的状态
func (e *Event) RefreshStatus(now time.Time) {
	e.Status = e.StatusAt(now)
}
