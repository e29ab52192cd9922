package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	shifts      ShiftRepository
	slots       SlotRepository
	appts       AppointmentRepository
	booking     BookingRepository
	slotMinutes int
	allowAdHoc  bool
}

func NewService(shifts ShiftRepository, slots SlotRepository, appts AppointmentRepository, booking BookingRepository, slotMinutes int, allowAdHoc bool) *Service {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	return &Service{
		shifts:      shifts,
		slots:       slots,
		appts:       appts,
		booking:     booking,
		slotMinutes: slotMinutes,
		allowAdHoc:  allowAdHoc,
	}
}

// -- Work shifts --

func (s *Service) CreateShift(ctx context.Context, w *WorkShift) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return s.shifts.Create(ctx, w)
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*WorkShift, error) {
	return s.shifts.GetByID(ctx, id)
}

func (s *Service) UpdateShift(ctx context.Context, w *WorkShift) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return s.shifts.Update(ctx, w)
}

func (s *Service) DeleteShift(ctx context.Context, id uuid.UUID) error {
	return s.shifts.Delete(ctx, id)
}

func (s *Service) ListShiftsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WorkShift, int, error) {
	return s.shifts.ListByDoctor(ctx, doctorID, limit, offset)
}

// -- Slots --

// PreviewSlots generates the candidate slots for a doctor and day without
// touching storage.
func (s *Service) PreviewSlots(ctx context.Context, doctorID uuid.UUID, date Date) ([]*TimeSlot, error) {
	shifts, err := s.shifts.ListForDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return GenerateSlots(doctorID, date, shifts, s.slotMinutes)
}

// MaterializeSlots persists the generated slots for a doctor and day,
// skipping any slot already present under its natural key. It returns the
// number of newly created records; running it twice with identical inputs
// creates zero records the second time.
func (s *Service) MaterializeSlots(ctx context.Context, doctorID uuid.UUID, date Date) (int, error) {
	candidates, err := s.PreviewSlots(ctx, doctorID, date)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, sl := range candidates {
		inserted, err := s.slots.CreateIfAbsent(ctx, sl)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return s.slots.GetByID(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, doctorID uuid.UUID, date Date, onlyAvailable bool) ([]*TimeSlot, error) {
	return s.slots.ListByDoctorDate(ctx, doctorID, date, onlyAvailable)
}

// -- Booking --

// BookSlot claims a materialized slot for a patient. Slot intervals for a
// doctor never overlap, so the transactional claim is the only check needed.
func (s *Service) BookSlot(ctx context.Context, slotID uuid.UUID, appt *Appointment) error {
	if appt.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if !validAppointmentStatuses[appt.Status] || appt.Status == StatusCancelled {
		return fmt.Errorf("invalid appointment status: %s", appt.Status)
	}
	return s.booking.BookSlot(ctx, slotID, appt)
}

// BookAdHoc books an arbitrary doctor/time selection without a precomputed
// slot. It scans the doctor's reservations and recomputes overlap before
// writing, which is check-then-act: a conflicting write landing between the
// scan and the insert will not be detected. This path is best-effort, not
// linearizable, and is disabled unless explicitly switched on.
func (s *Service) BookAdHoc(ctx context.Context, appt *Appointment) error {
	if !s.allowAdHoc {
		return ErrAdHocDisabled
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if err := appt.Validate(); err != nil {
		return err
	}
	if appt.Status == StatusCancelled {
		return fmt.Errorf("invalid appointment status: %s", appt.Status)
	}

	existing, err := s.appts.ListActiveByDoctor(ctx, appt.DoctorID)
	if err != nil {
		return err
	}
	if ConflictsWith(existing, appt.Start, appt.End, uuid.Nil) {
		return ErrOverlapConflict
	}
	appt.SlotID = nil
	return s.appts.Create(ctx, appt)
}

// -- Appointments --

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) AcceptAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusAccepted)
}

func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

// CancelAppointment frees the appointment's interval for future overlap
// checks. The linked slot, if any, stays booked: slot history is retained
// and the booked flag never transitions back to false.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason *string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(a.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, StatusCancelled)
	}
	a.Status = StatusCancelled
	a.CancellationReason = reason
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RescheduleAppointment moves an appointment to a new interval after
// checking it against the doctor's other reservations, excluding the
// appointment itself. A slot-backed appointment becomes ad hoc: its slot
// link is cleared and the original slot stays booked.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidTransition, a.Status)
	}

	existing, err := s.appts.ListActiveByDoctor(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	if ConflictsWith(existing, start, end, a.ID) {
		return nil, ErrOverlapConflict
	}

	a.Start = start
	a.End = end
	a.SlotID = nil
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
