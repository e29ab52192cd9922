package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// ShiftRepository persists WorkShift records.
type ShiftRepository interface {
	Create(ctx context.Context, w *WorkShift) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkShift, error)
	Update(ctx context.Context, w *WorkShift) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WorkShift, int, error)
	// ListForDate returns the shifts applicable to the doctor on the given
	// day, matching either the exact date or the recurring weekday.
	ListForDate(ctx context.Context, doctorID uuid.UUID, date Date) ([]*WorkShift, error)
}

// SlotRepository persists materialized TimeSlot records. Slots are never
// deleted; booking flips the booked flag through BookingRepository.
type SlotRepository interface {
	// CreateIfAbsent inserts the slot unless one already exists with the
	// same (doctor_id, date, start) natural key. It reports whether a row
	// was inserted. Safe to run concurrently; the guard is the natural
	// key, not a lock.
	CreateIfAbsent(ctx context.Context, sl *TimeSlot) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date Date, onlyAvailable bool) ([]*TimeSlot, error)
}

// AppointmentRepository persists Appointment records. Appointments are
// never physically deleted.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListActiveByDoctor returns every non-cancelled appointment for the
	// doctor, for conflict scans.
	ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
}

// BookingRepository claims a slot and creates its appointment as one
// indivisible operation. Two callers racing for the same slot must observe
// exactly one winner.
type BookingRepository interface {
	// BookSlot reads the slot, verifies it exists and is unbooked, marks
	// it booked and creates the appointment, all-or-nothing. It fails with
	// ErrSlotNotFound or ErrSlotAlreadyBooked; logical conflicts are never
	// retried.
	BookSlot(ctx context.Context, slotID uuid.UUID, appt *Appointment) error
}
