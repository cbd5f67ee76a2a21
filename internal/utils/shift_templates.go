package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

const (
	TemplateStandard  = "standard"
	TemplateExtended  = "extended"
	TemplateAllDay    = "allday"
	TemplateCustom    = "custom"
	TemplateRecurring = "recurring"
)

// maxRecurringShifts 限制一次循环生成的班次数量，防止 FREQ=MINUTELY;INTERVAL=1 这类规则生成上千个班次
const maxRecurringShifts = 48

var builtinShiftTemplates = map[string][]domain.ShiftTemplateShift{
	TemplateStandard: {
		{Name: "Morning 1", StartTime: "07:50", EndTime: "10:00"},
		{Name: "Morning 2", StartTime: "10:00", EndTime: "12:00"},
		{Name: "Afternoon 1", StartTime: "12:00", EndTime: "14:00"},
		{Name: "Afternoon 2", StartTime: "14:00", EndTime: "17:00"},
	},
	TemplateExtended: {
		{Name: "Early Morning", StartTime: "06:30", EndTime: "08:30"},
		{Name: "Morning", StartTime: "08:30", EndTime: "10:30"},
		{Name: "Late Morning", StartTime: "10:30", EndTime: "12:45"},
		{Name: "Early Afternoon", StartTime: "12:45", EndTime: "15:00"},
		{Name: "Late Afternoon", StartTime: "15:00", EndTime: "21:00"},
	},
	TemplateAllDay: {
		{Name: "All Day", IsAllDay: true},
	},
}

// BuiltinShiftTemplate 返回内置模板的班次副本
func BuiltinShiftTemplate(name string) ([]domain.ShiftTemplateShift, bool) {
	shifts, ok := builtinShiftTemplates[name]
	if !ok {
		return nil, false
	}
	cp := make([]domain.ShiftTemplateShift, len(shifts))
	copy(cp, shifts)
	return cp, true
}

// RecurringShifts 按 RRULE（例如 FREQ=MINUTELY;INTERVAL=120）把 [start, end) 切成连续的班次，
// 最后一个班次在 end 处截断
func RecurringShifts(rule string, start string, end string) ([]domain.ShiftTemplateShift, error) {
	window, err := scheduler.NewInterval(start, end)
	if err != nil {
		return nil, err
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("无法解析循环规则: %w", err)
	}

	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(time.Duration(window.Start) * time.Minute)
	windowEnd := day.Add(time.Duration(window.End) * time.Minute)

	r.DTStart(windowStart)
	occurrences := r.Between(windowStart, windowEnd, true)

	points := make([]time.Time, 0, len(occurrences)+1)
	for _, o := range occurrences {
		if o.Before(windowEnd) {
			points = append(points, o)
		}
	}
	if len(points) == 0 {
		return nil, errors.New("循环规则没有生成任何班次")
	}
	if len(points) > maxRecurringShifts {
		return nil, fmt.Errorf("循环规则生成的班次过多，最多允许 %d 个", maxRecurringShifts)
	}
	points = append(points, windowEnd)

	shifts := make([]domain.ShiftTemplateShift, 0, len(points)-1)
	for i := 0; i+1 < len(points); i++ {
		from := points[i].Format("15:04")
		to := points[i+1].Format("15:04")
		shifts = append(shifts, domain.ShiftTemplateShift{
			Name:      fmt.Sprintf("Shift %d", i+1),
			StartTime: from,
			EndTime:   to,
		})
	}

	return shifts, nil
}

// TemplateToShifts 将模板中的班次转换为岗位班次，全天班次没有具体时间
func TemplateToShifts(templateShifts []domain.ShiftTemplateShift) []domain.Shift {
	shifts := make([]domain.Shift, len(templateShifts))
	for i, ts := range templateShifts {
		shifts[i] = domain.Shift{
			Name:     ts.Name,
			IsAllDay: ts.IsAllDay,
		}
		if !ts.IsAllDay {
			start, end := ts.StartTime, ts.EndTime
			shifts[i].StartTime = &start
			shifts[i].EndTime = &end
		}
	}
	return shifts
}
