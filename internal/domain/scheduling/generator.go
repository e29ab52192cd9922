package scheduling

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultSlotMinutes is the slot duration used when none is configured.
const DefaultSlotMinutes = 30

type slotKey struct {
	start Clock
	end   Clock
	room  string
}

// GenerateSlots derives the bookable intervals for a doctor on a calendar
// day from the given shift definitions. It is a pure function: persistence
// is the caller's concern.
//
// Each applicable shift is walked from start to end in slotMinutes steps;
// a trailing window shorter than slotMinutes is dropped, never rounded up.
// Candidates from multiple shifts are de-duplicated by (start, end, room)
// to guard against overlapping shift definitions, then sorted by start time.
// A doctor with no applicable shifts yields an empty sequence.
func GenerateSlots(doctorID uuid.UUID, date Date, shifts []*WorkShift, slotMinutes int) ([]*TimeSlot, error) {
	if slotMinutes <= 0 {
		return nil, ErrInvalidInterval
	}

	seen := make(map[slotKey]bool)
	var out []*TimeSlot
	for _, shift := range shifts {
		if shift.DoctorID != doctorID || !shift.AppliesTo(date) {
			continue
		}
		if shift.Start >= shift.End {
			return nil, ErrInvalidInterval
		}
		for start := shift.Start; start.Add(slotMinutes) <= shift.End; start = start.Add(slotMinutes) {
			end := start.Add(slotMinutes)
			key := slotKey{start: start, end: end}
			if shift.RoomID != nil {
				key.room = *shift.RoomID
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, &TimeSlot{
				DoctorID: doctorID,
				Date:     date,
				Start:    start,
				End:      end,
				RoomID:   shift.RoomID,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return derefRoom(out[i].RoomID) < derefRoom(out[j].RoomID)
	})
	return out, nil
}

func derefRoom(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}
