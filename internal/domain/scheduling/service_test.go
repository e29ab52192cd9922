package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService(t *testing.T, allowAdHoc bool) *Service {
	t.Helper()
	slots := NewSlotRepoMem()
	appts := NewAppointmentRepoMem()
	return NewService(NewShiftRepoMem(), slots, appts, NewBookingRepoMem(slots, appts), 30, allowAdHoc)
}

func seedShift(t *testing.T, svc *Service, doctorID uuid.UUID, weekday int, start, end string) {
	t.Helper()
	w := weekdayShift(doctorID, weekday, mustClock(t, start), mustClock(t, end))
	if err := svc.CreateShift(context.Background(), w); err != nil {
		t.Fatalf("seeding shift: %v", err)
	}
}

func TestService_CreateShift_Validation(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	inverted := weekdayShift(uuid.New(), 1, mustClock(t, "12:00"), mustClock(t, "09:00"))
	if err := svc.CreateShift(ctx, inverted); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}

	both := weekdayShift(uuid.New(), 1, mustClock(t, "09:00"), mustClock(t, "12:00"))
	d, _ := ParseDate("2026-03-09")
	both.Date = &d
	if err := svc.CreateShift(ctx, both); err == nil {
		t.Error("expected error when both weekday and date are set")
	}

	neither := &WorkShift{DoctorID: uuid.New(), Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")}
	if err := svc.CreateShift(ctx, neither); err == nil {
		t.Error("expected error when neither weekday nor date is set")
	}
}

func TestService_MaterializeSlots_Idempotent(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09") // Monday
	seedShift(t, svc, doctorID, 1, "09:00", "10:00")

	created, err := svc.MaterializeSlots(ctx, doctorID, date)
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("expected 2 slots created, got %d", created)
	}

	created, err = svc.MaterializeSlots(ctx, doctorID, date)
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Errorf("second run created %d records, expected 0", created)
	}

	slots, err := svc.ListSlots(ctx, doctorID, date, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Errorf("expected 2 persisted slots, got %d", len(slots))
	}
}

func TestService_BookSlot(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	seedShift(t, svc, doctorID, 1, "09:00", "10:00")
	if _, err := svc.MaterializeSlots(ctx, doctorID, date); err != nil {
		t.Fatal(err)
	}
	slots, _ := svc.ListSlots(ctx, doctorID, date, true)
	if len(slots) != 2 {
		t.Fatalf("expected 2 available slots, got %d", len(slots))
	}

	patientID := uuid.New()
	appt := &Appointment{PatientID: patientID}
	if err := svc.BookSlot(ctx, slots[0].ID, appt); err != nil {
		t.Fatalf("booking first slot: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("expected pending status, got %s", appt.Status)
	}
	if appt.SlotID == nil || *appt.SlotID != slots[0].ID {
		t.Error("appointment not linked to its slot")
	}
	if appt.Start.Hour() != 9 || appt.Start.Minute() != 0 {
		t.Errorf("appointment start %s does not match slot", appt.Start)
	}

	// The claimed slot carries the back-reference to its appointment.
	booked, err := svc.GetSlot(ctx, slots[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if booked.AppointmentID == nil || *booked.AppointmentID != appt.ID {
		t.Error("expected booked slot to reference its appointment")
	}

	// Same slot again: distinguishable from an unknown slot.
	err = svc.BookSlot(ctx, slots[0].ID, &Appointment{PatientID: uuid.New()})
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Errorf("expected ErrSlotAlreadyBooked, got %v", err)
	}
	err = svc.BookSlot(ctx, uuid.New(), &Appointment{PatientID: uuid.New()})
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}

	// The adjacent slot books independently.
	if err := svc.BookSlot(ctx, slots[1].ID, &Appointment{PatientID: patientID}); err != nil {
		t.Errorf("booking adjacent slot: %v", err)
	}

	available, _ := svc.ListSlots(ctx, doctorID, date, true)
	if len(available) != 0 {
		t.Errorf("expected no available slots, got %d", len(available))
	}
}

func TestService_BookSlot_ConcurrentOneWinner(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	seedShift(t, svc, doctorID, 1, "09:00", "09:30")
	if _, err := svc.MaterializeSlots(ctx, doctorID, date); err != nil {
		t.Fatal(err)
	}
	slots, _ := svc.ListSlots(ctx, doctorID, date, true)
	if len(slots) != 1 {
		t.Fatalf("expected a single slot, got %d", len(slots))
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.BookSlot(ctx, slots[0].ID, &Appointment{PatientID: uuid.New()})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotAlreadyBooked):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}

	appts, total, err := svc.ListAppointmentsByDoctor(ctx, doctorID, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(appts) != 1 {
		t.Errorf("expected exactly one appointment record, got %d", total)
	}
}

func TestService_BookAdHoc(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	doctorID := uuid.New()
	base := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	first := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(9, 0), End: at(9, 30)}
	if err := svc.BookAdHoc(ctx, first); err != nil {
		t.Fatalf("first ad hoc booking: %v", err)
	}

	// 09:15-09:45 against 09:00-09:30: max(09:15,09:00) < min(09:45,09:30).
	overlap := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(9, 15), End: at(9, 45)}
	if err := svc.BookAdHoc(ctx, overlap); !errors.Is(err, ErrOverlapConflict) {
		t.Errorf("expected ErrOverlapConflict, got %v", err)
	}

	adjacent := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(9, 30), End: at(10, 0)}
	if err := svc.BookAdHoc(ctx, adjacent); err != nil {
		t.Errorf("adjacent ad hoc booking: %v", err)
	}

	inverted := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(11, 0), End: at(10, 0)}
	if err := svc.BookAdHoc(ctx, inverted); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestService_BookAdHoc_Disabled(t *testing.T) {
	svc := newTestService(t, false)
	appt := &Appointment{
		DoctorID: uuid.New(), PatientID: uuid.New(),
		Start: time.Now(), End: time.Now().Add(30 * time.Minute),
	}
	if err := svc.BookAdHoc(context.Background(), appt); !errors.Is(err, ErrAdHocDisabled) {
		t.Errorf("expected ErrAdHocDisabled, got %v", err)
	}
}

func TestService_CancelFreesInterval(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	doctorID := uuid.New()
	base := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	first := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: base.Add(9 * time.Hour), End: base.Add(9*time.Hour + 30*time.Minute)}
	if err := svc.BookAdHoc(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: first.Start, End: first.End}
	if err := svc.BookAdHoc(ctx, second); !errors.Is(err, ErrOverlapConflict) {
		t.Fatalf("expected conflict before cancellation, got %v", err)
	}

	if _, err := svc.CancelAppointment(ctx, first.ID, nil); err != nil {
		t.Fatal(err)
	}

	if err := svc.BookAdHoc(ctx, second); err != nil {
		t.Errorf("expected cancelled reservation to free the interval, got %v", err)
	}
}

func TestService_CancelRecordsReason(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	appt := &Appointment{
		DoctorID: uuid.New(), PatientID: uuid.New(),
		Start: time.Now().UTC(), End: time.Now().UTC().Add(30 * time.Minute),
	}
	if err := svc.BookAdHoc(ctx, appt); err != nil {
		t.Fatal(err)
	}

	reason := "patient requested"
	cancelled, err := svc.CancelAppointment(ctx, appt.ID, &reason)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != reason {
		t.Errorf("expected cancellation reason %q, got %v", reason, cancelled.CancellationReason)
	}

	stored, err := svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CancellationReason == nil || *stored.CancellationReason != reason {
		t.Error("expected cancellation reason to be persisted")
	}
}

func TestService_AppointmentTransitions(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	appt := &Appointment{
		DoctorID: uuid.New(), PatientID: uuid.New(),
		Start: time.Now().UTC(), End: time.Now().UTC().Add(30 * time.Minute),
	}
	if err := svc.BookAdHoc(ctx, appt); err != nil {
		t.Fatal(err)
	}

	// pending cannot complete directly
	if _, err := svc.CompleteAppointment(ctx, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	a, err := svc.AcceptAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", a.Status)
	}

	a, err = svc.CompleteAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}

	// completed is terminal
	if _, err := svc.CancelAppointment(ctx, appt.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from completed, got %v", err)
	}

	if _, err := svc.AcceptAppointment(ctx, uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestService_Reschedule(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	doctorID := uuid.New()
	base := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	first := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(9, 0), End: at(9, 30)}
	second := &Appointment{DoctorID: doctorID, PatientID: uuid.New(), Start: at(10, 0), End: at(10, 30)}
	for _, a := range []*Appointment{first, second} {
		if err := svc.BookAdHoc(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	// Moving onto another reservation is rejected.
	if _, err := svc.RescheduleAppointment(ctx, first.ID, at(10, 15), at(10, 45)); !errors.Is(err, ErrOverlapConflict) {
		t.Errorf("expected ErrOverlapConflict, got %v", err)
	}

	// Shifting within the appointment's own window passes the exclude-self check.
	moved, err := svc.RescheduleAppointment(ctx, first.ID, at(9, 15), at(9, 45))
	if err != nil {
		t.Fatalf("reschedule in place: %v", err)
	}
	if !moved.Start.Equal(at(9, 15)) || !moved.End.Equal(at(9, 45)) {
		t.Errorf("unexpected moved interval %s-%s", moved.Start, moved.End)
	}

	if _, err := svc.RescheduleAppointment(ctx, first.ID, at(11, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestService_RescheduleClearsSlotLink(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	doctorID := uuid.New()
	date, _ := ParseDate("2026-03-09")
	seedShift(t, svc, doctorID, 1, "09:00", "09:30")
	if _, err := svc.MaterializeSlots(ctx, doctorID, date); err != nil {
		t.Fatal(err)
	}
	slots, _ := svc.ListSlots(ctx, doctorID, date, true)

	appt := &Appointment{PatientID: uuid.New()}
	if err := svc.BookSlot(ctx, slots[0].ID, appt); err != nil {
		t.Fatal(err)
	}

	moved, err := svc.RescheduleAppointment(ctx, appt.ID, appt.Start.Add(time.Hour), appt.End.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if moved.SlotID != nil {
		t.Error("expected slot link cleared after reschedule")
	}

	// The original slot stays booked; slot history is never rewound.
	sl, err := svc.GetSlot(ctx, slots[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !sl.Booked {
		t.Error("expected original slot to remain booked")
	}
}
