package scheduler

// eligible 判断 person 是否可以被分配到 slot
func (s *Scheduler) eligible(person *Person, slot Slot, workload int, planned []Interval) bool {
	if s.options.MaxAssignmentsPerPerson > 0 && workload >= s.options.MaxAssignmentsPerPerson {
		return false
	}

	// 已经持久化的安排和本次已经计划的安排都不能与该岗位的时间重叠，
	// 数据库的排他约束同样会拒绝这样的安排
	for _, busy := range person.Busy {
		if busy.Overlaps(slot.Hours) {
			return false
		}
	}
	for _, p := range planned {
		if p.Overlaps(slot.Hours) {
			return false
		}
	}

	return true
}

/**
 * 计算某人分配到某岗位的得分，得分越低越优先
 * score = workload - bonus
 * 其中 bonus 由 OptimizeFor 决定：
 * 		1. experience: 资深人员减 1
 * 		2. availability: 声明的空闲时间覆盖该岗位时间的人减 1
 * 		3. workload: 没有额外加成
 * 开启 PreferredSkillMatch 时，被指定为该岗位 keyman 的人再减 1
 */
func (s *Scheduler) score(person *Person, slot Slot, workload int) int {
	score := workload

	switch s.options.OptimizeFor {
	case OptimizeExperience:
		if person.Senior {
			score--
		}
	case OptimizeAvailability:
		if isAvailable(person, slot.Hours) {
			score--
		}
	case OptimizeWorkload:
	default:
	}

	if s.options.PreferredSkillMatch && isDesignatedKeyman(person, slot) {
		score--
	}

	return score
}
