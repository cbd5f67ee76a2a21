package scheduler

func isAvailable(person *Person, hours Interval) bool {
	for _, window := range person.Availability {
		if window.Covers(hours) {
			return true
		}
	}
	return false
}

func isDesignatedKeyman(person *Person, slot Slot) bool {
	return slot.KeymanID != nil && *slot.KeymanID == person.UserID
}
