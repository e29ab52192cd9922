package scheduling

import "errors"

var (
	// ErrSlotNotFound is returned when a referenced slot id does not exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotAlreadyBooked is returned when a booking transaction observes
	// a slot whose booked flag is already set. It is distinct from
	// ErrSlotNotFound so callers can tell "someone just took this slot"
	// apart from "invalid selection".
	ErrSlotAlreadyBooked = errors.New("slot already booked")

	// ErrOverlapConflict is returned when a booking attempt found a
	// conflicting reservation for the same doctor.
	ErrOverlapConflict = errors.New("appointment overlaps an existing reservation")

	// ErrInvalidInterval is returned when a start/end pair fails start < end.
	ErrInvalidInterval = errors.New("interval start must be before end")

	// ErrAdHocDisabled is returned when ad hoc booking is attempted while
	// the feature is switched off.
	ErrAdHocDisabled = errors.New("ad hoc booking is disabled")

	// ErrShiftNotFound is returned when a referenced work shift does not exist.
	ErrShiftNotFound = errors.New("work shift not found")

	// ErrAppointmentNotFound is returned when a referenced appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrInvalidTransition is returned when an appointment status change
	// is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid appointment status transition")
)
