package scheduling

// Interval is a half-open [Start, End) window within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && Before(i.Start, i.End)
}

// Contains reports whether other lies entirely within i.
func (i Interval) Contains(other Interval) bool {
	return Compare(other.Start, i.Start) >= 0 && Compare(other.End, i.End) <= 0
}

// Equal reports whether both bounds match exactly.
func (i Interval) Equal(other Interval) bool {
	return Compare(i.Start, other.Start) == 0 && Compare(i.End, other.End) == 0
}

// Overlaps reports whether [startA, endA) and [startB, endB) share at least one instant.
// Every conflict check in the service goes through this predicate.
func Overlaps(startA, endA, startB, endB TimeOfDay) bool {
	return Before(startA, endB) && Before(startB, endA)
}

// OverlapsInterval is Overlaps for two intervals.
func (i Interval) OverlapsInterval(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// FirstOverlap returns the index of the first busy interval overlapping candidate, or -1.
func FirstOverlap(candidate Interval, busy []Interval) int {
	for idx, b := range busy {
		if candidate.OverlapsInterval(b) {
			return idx
		}
	}
	return -1
}
