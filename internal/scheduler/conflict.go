package scheduler

import "github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"

// assignmentInterval 解析已有安排的时间，无法解析的记录视为占满全天
func assignmentInterval(a *domain.Assignment) Interval {
	iv, err := NewInterval(a.ShiftStart, a.ShiftEnd)
	if err != nil {
		return Interval{Start: 0, End: 24 * 60}
	}
	return iv
}

func occupies(a *domain.Assignment, excludeID int64) bool {
	if excludeID != 0 && a.ID == excludeID {
		return false
	}
	return a.Status.OccupiesTime()
}

// HasConflict 判断 candidate 是否与同一个人的已有安排重叠，找到第一个冲突即返回。
// excludeID 为 0 表示不排除任何安排；已拒绝的安排不占用时间。
func HasConflict(existing []*domain.Assignment, candidate Interval, excludeID int64) bool {
	for _, a := range existing {
		if !occupies(a, excludeID) {
			continue
		}
		if assignmentInterval(a).Overlaps(candidate) {
			return true
		}
	}
	return false
}

// FindConflicts 返回所有与 candidate 重叠的安排，用于向调用方报告冲突数量
func FindConflicts(existing []*domain.Assignment, candidate Interval, excludeID int64) []*domain.Assignment {
	conflicts := make([]*domain.Assignment, 0)
	for _, a := range existing {
		if !occupies(a, excludeID) {
			continue
		}
		if assignmentInterval(a).Overlaps(candidate) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts
}

// BusyIntervals 将某人已有的安排转换为占用的时间段
func BusyIntervals(existing []*domain.Assignment) []Interval {
	busy := make([]Interval, 0, len(existing))
	for _, a := range existing {
		if !a.Status.OccupiesTime() {
			continue
		}
		busy = append(busy, assignmentInterval(a))
	}
	return busy
}
