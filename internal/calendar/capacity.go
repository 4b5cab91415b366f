package calendar

// DayLoad is the per-date active reservation count used to derive fullness.
type DayLoad struct {
	// SlotIDs lists every configured slot.
	SlotIDs []int64
	// Counts holds the active reservation count per slot id.
	Counts   map[int64]int
	Disabled map[int64]struct{}
	// Special is set when the date's override is SpecialHours.
	Special      bool
	SpecialCount int
}

// SlotFull reports whether the slot has reached capacity.
func (l DayLoad) SlotFull(id int64, capacity int) bool {
	return l.Counts[id] >= capacity
}

// FullyBooked derives the fully-booked flag of the date. A special-hours date
// is full when its special count reached capacity. A regular date is full
// when at least one non-disabled slot exists and all of them reached
// capacity; a date with every slot disabled is not reported as full.
func (l DayLoad) FullyBooked(capacity int) bool {
	if l.Special {
		return l.SpecialCount >= capacity
	}
	open := 0
	for _, id := range l.SlotIDs {
		if _, ok := l.Disabled[id]; ok {
			continue
		}
		open++
		if !l.SlotFull(id, capacity) {
			return false
		}
	}
	return open > 0
}
