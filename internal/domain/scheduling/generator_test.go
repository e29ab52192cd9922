package scheduling

import (
	"testing"

	"github.com/google/uuid"
)

func weekdayShift(doctorID uuid.UUID, weekday int, start, end Clock) *WorkShift {
	return &WorkShift{DoctorID: doctorID, Weekday: &weekday, Start: start, End: end}
}

func TestGenerateSlots_ExactDivision(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09") // Monday
	shift := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "11:00"))

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{shift}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots for a 2h shift at 30m, got %d", len(slots))
	}
	// Contiguous, non-overlapping, covering [09:00,11:00) exactly.
	if slots[0].Start != mustClock(t, "09:00") {
		t.Errorf("first slot starts at %s", slots[0].Start)
	}
	if slots[len(slots)-1].End != mustClock(t, "11:00") {
		t.Errorf("last slot ends at %s", slots[len(slots)-1].End)
	}
	for i, sl := range slots {
		if sl.End != sl.Start.Add(30) {
			t.Errorf("slot %d has length %d minutes", i, sl.End-sl.Start)
		}
		if i > 0 && slots[i-1].End != sl.Start {
			t.Errorf("gap between slot %d and %d", i-1, i)
		}
		if sl.Booked {
			t.Errorf("slot %d generated as booked", i)
		}
	}
}

func TestGenerateSlots_DropsTrailingPartial(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	// 09:00-10:15 at 30m: the 10:00-10:15 remainder is dropped, not rounded up.
	shift := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "10:15"))

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{shift}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[1].End != mustClock(t, "10:00") {
		t.Errorf("expected last slot to end at 10:00, got %s", slots[1].End)
	}
}

func TestGenerateSlots_NoMatchingShifts(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09") // Monday
	sunday := weekdayShift(doctorID, 0, mustClock(t, "09:00"), mustClock(t, "12:00"))
	otherDoctor := weekdayShift(uuid.New(), 1, mustClock(t, "09:00"), mustClock(t, "12:00"))

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{sunday, otherDoctor}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("expected empty sequence, got %d slots", len(slots))
	}
}

func TestGenerateSlots_DatePinnedShift(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	other, _ := ParseDate("2026-03-10")
	pinned := &WorkShift{DoctorID: doctorID, Date: &date, Start: mustClock(t, "14:00"), End: mustClock(t, "15:00")}

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{pinned}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots on the pinned date, got %d", len(slots))
	}

	slots, err = GenerateSlots(doctorID, other, []*WorkShift{pinned}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on another day, got %d", len(slots))
	}
}

func TestGenerateSlots_DeduplicatesOverlappingShifts(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	// Two administrator-entered shifts sharing the 10:00-11:00 hour.
	a := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "11:00"))
	b := weekdayShift(doctorID, 1, mustClock(t, "10:00"), mustClock(t, "12:00"))

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{a, b}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 de-duplicated slots over 09:00-12:00, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i-1].Start >= slots[i].Start {
			t.Errorf("slots not sorted ascending at index %d", i)
		}
	}
}

func TestGenerateSlots_RoomsKeptSeparate(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	roomA, roomB := "room-a", "room-b"
	a := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "10:00"))
	a.RoomID = &roomA
	b := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "10:00"))
	b.RoomID = &roomB

	slots, err := GenerateSlots(doctorID, date, []*WorkShift{a, b}, 30)
	if err != nil {
		t.Fatal(err)
	}
	// Same times in different rooms are distinct slots.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots across two rooms, got %d", len(slots))
	}
}

func TestGenerateSlots_InvalidInput(t *testing.T) {
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	bad := weekdayShift(doctorID, 1, mustClock(t, "11:00"), mustClock(t, "09:00"))

	if _, err := GenerateSlots(doctorID, date, []*WorkShift{bad}, 30); err != ErrInvalidInterval {
		t.Errorf("expected ErrInvalidInterval for inverted shift, got %v", err)
	}
	ok := weekdayShift(doctorID, 1, mustClock(t, "09:00"), mustClock(t, "10:00"))
	if _, err := GenerateSlots(doctorID, date, []*WorkShift{ok}, 0); err != ErrInvalidInterval {
		t.Errorf("expected ErrInvalidInterval for zero slot duration, got %v", err)
	}
}
