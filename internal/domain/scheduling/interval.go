package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect: max(aStart,bStart) < min(aEnd,bEnd).
// This is the single kernel every booking and reschedule path reuses.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	return lo < hi
}

// OverlapsAt is the same kernel over absolute timestamps, for intervals
// that may cross midnight.
func OverlapsAt(aStart, aEnd, bStart, bEnd time.Time) bool {
	lo := aStart
	if bStart.After(lo) {
		lo = bStart
	}
	hi := aEnd
	if bEnd.Before(hi) {
		hi = bEnd
	}
	return lo.Before(hi)
}

// ConflictsWith reports whether the candidate interval [start,end) collides
// with any occupying reservation in the set. Cancelled reservations are
// skipped, as is the reservation identified by exclude, which supports
// reschedule-in-place. Pass uuid.Nil to exclude nothing.
func ConflictsWith(existing []*Appointment, start, end time.Time, exclude uuid.UUID) bool {
	for _, a := range existing {
		if a.ID == exclude {
			continue
		}
		if !a.Occupies() {
			continue
		}
		if OverlapsAt(start, end, a.Start, a.End) {
			return true
		}
	}
	return false
}
