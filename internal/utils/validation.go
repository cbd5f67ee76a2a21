package utils

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

// ValidateEventWindow 检查活动的日期窗口和默认班次时间
func ValidateEventWindow(e *domain.Event) error {
	if e.EndDate.Before(e.StartDate) {
		return errors.New("活动结束日期不能早于开始日期")
	}

	if (e.StartTime == nil) != (e.EndTime == nil) {
		return errors.New("默认开始时间和结束时间必须同时设置")
	}
	if e.StartTime != nil {
		if _, err := scheduler.NewInterval(*e.StartTime, *e.EndTime); err != nil {
			return errors.New("默认结束时间必须晚于默认开始时间")
		}
	}

	return nil
}

// ValidatePermissionScope 有范围限制的权限必须给出至少一个范围，没有范围限制的权限不能携带范围
func ValidatePermissionScope(scopeType *domain.ScopeType, scopeIDs []string) error {
	if scopeType == nil {
		if len(scopeIDs) > 0 {
			return domain.ErrInvalidScope.WithDetail("reason", "没有范围类型时不能指定范围")
		}
		return nil
	}

	if !scopeType.Valid() {
		return domain.ErrInvalidScope.WithDetail("scopeType", *scopeType)
	}
	if len(scopeIDs) == 0 {
		return domain.ErrInvalidScope.WithDetail("reason", "至少需要指定一个范围")
	}
	for i, id := range scopeIDs {
		if id == "" {
			return domain.ErrInvalidScope.WithDetail("index", i)
		}
	}

	return nil
}

// ValidateTemplateShifts 检查模板中的班次：时间格式正确、结束晚于开始、互不重叠，全天班次只能单独存在
func ValidateTemplateShifts(shifts []domain.ShiftTemplateShift) error {
	if len(shifts) == 0 {
		return errors.New("模板中至少需要一个班次")
	}

	intervals := make([]scheduler.Interval, 0, len(shifts))
	for id, shift := range shifts {
		if shift.Name == "" {
			return fmt.Errorf("班次 %d 缺少名称", id)
		}
		if shift.IsAllDay {
			if len(shifts) > 1 {
				return fmt.Errorf("班次 %d 是全天班次，不能与其他班次共存", id)
			}
			continue
		}

		interval, err := scheduler.NewInterval(shift.StartTime, shift.EndTime)
		if err != nil {
			return fmt.Errorf("班次 %d 的时间格式错误或结束时间不晚于开始时间", id)
		}
		intervals = append(intervals, interval)
	}

	// 检查各个班次之间的时间是否冲突
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Overlaps(intervals[j]) {
				return fmt.Errorf("班次 %d 和班次 %d 之间的时间冲突", i, j)
			}
		}
	}

	return nil
}

// ValidateAvailability 检查空闲时间：每一段结束晚于开始，各段之间互不重叠
func ValidateAvailability(windows []domain.AvailabilityWindow) error {
	intervals := make([]scheduler.Interval, len(windows))
	for i, w := range windows {
		interval, err := scheduler.NewInterval(w.Start, w.End)
		if err != nil {
			return fmt.Errorf("第 %d 段空闲时间的格式错误或结束时间不晚于开始时间", i+1)
		}
		intervals[i] = interval
	}

	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Overlaps(intervals[j]) {
				return fmt.Errorf("第 %d 段和第 %d 段空闲时间重叠", i+1, j+1)
			}
		}
	}

	return nil
}
