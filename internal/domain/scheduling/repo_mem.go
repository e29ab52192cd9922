package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory repositories backing tests and development without Postgres.
// A single mutex per store stands in for the database's isolation; the
// booking store's mutex is what makes memBookingRepo linearizable.

type memShiftRepo struct {
	mu     sync.RWMutex
	shifts map[uuid.UUID]*WorkShift
}

func NewShiftRepoMem() ShiftRepository {
	return &memShiftRepo{shifts: make(map[uuid.UUID]*WorkShift)}
}

func (r *memShiftRepo) Create(_ context.Context, w *WorkShift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.New()
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	cp := *w
	r.shifts[w.ID] = &cp
	return nil
}

func (r *memShiftRepo) GetByID(_ context.Context, id uuid.UUID) (*WorkShift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.shifts[id]
	if !ok {
		return nil, ErrShiftNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *memShiftRepo) Update(_ context.Context, w *WorkShift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.shifts[w.ID]
	if !ok {
		return ErrShiftNotFound
	}
	w.CreatedAt = cur.CreatedAt
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	r.shifts[w.ID] = &cp
	return nil
}

func (r *memShiftRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shifts[id]; !ok {
		return ErrShiftNotFound
	}
	delete(r.shifts, id)
	return nil
}

func (r *memShiftRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*WorkShift, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*WorkShift
	for _, w := range r.shifts {
		if w.DoctorID == doctorID {
			cp := *w
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return page(all, limit, offset), len(all), nil
}

func (r *memShiftRepo) ListForDate(_ context.Context, doctorID uuid.UUID, date Date) ([]*WorkShift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*WorkShift
	for _, w := range r.shifts {
		if w.DoctorID == doctorID && w.AppliesTo(date) {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

type slotNaturalKey struct {
	doctor uuid.UUID
	date   string
	start  Clock
}

type memSlotRepo struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]*TimeSlot
	byKey map[slotNaturalKey]uuid.UUID
}

func NewSlotRepoMem() SlotRepository {
	return &memSlotRepo{
		slots: make(map[uuid.UUID]*TimeSlot),
		byKey: make(map[slotNaturalKey]uuid.UUID),
	}
}

func (r *memSlotRepo) key(sl *TimeSlot) slotNaturalKey {
	return slotNaturalKey{doctor: sl.DoctorID, date: sl.Date.String(), start: sl.Start}
}

func (r *memSlotRepo) CreateIfAbsent(_ context.Context, sl *TimeSlot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[r.key(sl)]; exists {
		return false, nil
	}
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	sl.CreatedAt = time.Now().UTC()
	sl.UpdatedAt = sl.CreatedAt
	cp := *sl
	r.slots[sl.ID] = &cp
	r.byKey[r.key(sl)] = sl.ID
	return true, nil
}

func (r *memSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sl, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *sl
	return &cp, nil
}

func (r *memSlotRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date Date, onlyAvailable bool) ([]*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*TimeSlot
	for _, sl := range r.slots {
		if sl.DoctorID != doctorID || sl.Date.String() != date.String() {
			continue
		}
		if onlyAvailable && sl.Booked {
			continue
		}
		cp := *sl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// markBooked is used by memBookingRepo while holding its own lock ordering:
// booking lock first, then the slot store lock.
func (r *memSlotRepo) markBooked(id, apptID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if sl.Booked {
		return ErrSlotAlreadyBooked
	}
	sl.Booked = true
	sl.AppointmentID = &apptID
	sl.UpdatedAt = time.Now().UTC()
	return nil
}

type memAppointmentRepo struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
}

func NewAppointmentRepoMem() AppointmentRepository {
	return &memAppointmentRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *memAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.appts[a.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset)
}

func (r *memAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset)
}

func (r *memAppointmentRepo) listBy(match func(*Appointment) bool, limit, offset int) ([]*Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*Appointment
	for _, a := range r.appts {
		if match(a) {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start.After(all[j].Start) })
	return page(all, limit, offset), len(all), nil
}

func (r *memAppointmentRepo) ListActiveByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Occupies() {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

type memBookingRepo struct {
	mu    sync.Mutex
	slots *memSlotRepo
	appts AppointmentRepository
}

// NewBookingRepoMem builds the in-memory booking path. The slot repository
// must be the one returned by NewSlotRepoMem.
func NewBookingRepoMem(slots SlotRepository, appts AppointmentRepository) BookingRepository {
	return &memBookingRepo{slots: slots.(*memSlotRepo), appts: appts}
}

func (r *memBookingRepo) BookSlot(ctx context.Context, slotID uuid.UUID, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sl, err := r.slots.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if sl.Booked {
		return ErrSlotAlreadyBooked
	}

	appt.DoctorID = sl.DoctorID
	appt.Start = sl.Start.At(sl.Date)
	appt.End = sl.End.At(sl.Date)
	appt.SlotID = &sl.ID
	if err := r.appts.Create(ctx, appt); err != nil {
		return err
	}
	return r.slots.markBooked(slotID, appt.ID)
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
