package scheduler

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const clockLayout = "15:04"

// Interval 是一天之内的半开区间 [Start, End)，单位为分钟
type Interval struct {
	Start int
	End   int
}

// ParseClock 将 HH:MM 解析为一天中的第几分钟，必须按数值而不是字符串比较时间
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NewInterval 解析开始和结束时间，结束时间必须严格晚于开始时间
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, domain.ErrInvalidTime.WithDetail("value", start)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, domain.ErrInvalidTime.WithDetail("value", end)
	}
	if e <= s {
		return Interval{}, domain.ErrInvalidTime.WithDetail("value", start+"-"+end)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps 判断两个半开区间是否重叠，首尾相接（e1 == s2）不算重叠
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Covers 判断 o 是否完全落在 i 之内
func (i Interval) Covers(o Interval) bool {
	return i.Start <= o.Start && o.End <= i.End
}

func (i Interval) StartClock() string {
	return FormatClock(i.Start)
}

func (i Interval) EndClock() string {
	return FormatClock(i.End)
}

func (i Interval) String() string {
	return i.StartClock() + "-" + i.EndClock()
}
