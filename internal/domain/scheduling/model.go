package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkShift is a recurring or date-pinned availability window for a doctor.
// Exactly one of Weekday (0=Sunday through 6=Saturday) or Date is set.
type WorkShift struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Weekday   *int      `db:"weekday" json:"weekday,omitempty"`
	Date      *Date     `db:"shift_date" json:"date,omitempty"`
	Start     Clock     `db:"start_time" json:"start"`
	End       Clock     `db:"end_time" json:"end"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the shift's structural invariants.
func (w *WorkShift) Validate() error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if (w.Weekday == nil) == (w.Date == nil) {
		return fmt.Errorf("exactly one of weekday or date is required")
	}
	if w.Weekday != nil && (*w.Weekday < 0 || *w.Weekday > 6) {
		return fmt.Errorf("weekday must be between 0 and 6")
	}
	if w.Start >= w.End {
		return ErrInvalidInterval
	}
	return nil
}

// AppliesTo reports whether the shift covers the given calendar day,
// either by exact date or by recurring weekday.
func (w *WorkShift) AppliesTo(d Date) bool {
	if w.Date != nil {
		return w.Date.Equal(d.Time)
	}
	return w.Weekday != nil && *w.Weekday == d.WeekdayIndex()
}

// TimeSlot is a discrete bookable interval materialized from a WorkShift.
// Slots are never deleted. The booked flag transitions false to true
// exactly once, inside the booking transaction.
type TimeSlot struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Date          Date       `db:"slot_date" json:"date"`
	Start         Clock      `db:"start_time" json:"start"`
	End           Clock      `db:"end_time" json:"end"`
	Booked        bool       `db:"booked" json:"booked"`
	RoomID        *string    `db:"room_id" json:"room_id,omitempty"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Appointment statuses. Cancelled is the only status that frees the
// underlying interval for overlap checks.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validAppointmentStatuses = map[string]bool{
	StatusPending: true, StatusAccepted: true,
	StatusCompleted: true, StatusCancelled: true,
}

// appointmentTransitions lists the allowed status changes.
var appointmentTransitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is a confirmed or pending booking. Appointments are never
// physically deleted; cancellation is a status change.
type Appointment struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	DoctorID           uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	PatientID          uuid.UUID      `db:"patient_id" json:"patient_id"`
	Start              time.Time      `db:"start_time" json:"start"`
	End                time.Time      `db:"end_time" json:"end"`
	Status             string         `db:"status" json:"status"`
	SlotID             *uuid.UUID     `db:"slot_id" json:"slot_id,omitempty"`
	ServiceName        *string        `db:"service_name" json:"service_name,omitempty"`
	Price              *float64       `db:"price" json:"price,omitempty"`
	DurationMinutes    *int           `db:"duration_minutes" json:"duration_minutes,omitempty"`
	CancellationReason *string        `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	Meta               map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Validate checks the appointment's structural invariants.
func (a *Appointment) Validate() error {
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !a.Start.Before(a.End) {
		return ErrInvalidInterval
	}
	if a.Status != "" && !validAppointmentStatuses[a.Status] {
		return fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	return nil
}

// Occupies reports whether the appointment counts toward overlap checks.
// Cancelled appointments free their interval; every other status occupies it.
func (a *Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}
