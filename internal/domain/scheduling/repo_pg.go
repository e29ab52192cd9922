package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// =========== Shift Repository ===========

type shiftRepoPG struct{ pool *pgxpool.Pool }

func NewShiftRepoPG(pool *pgxpool.Pool) ShiftRepository { return &shiftRepoPG{pool: pool} }

func (r *shiftRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const shiftCols = `id, doctor_id, weekday, shift_date, start_time, end_time, room_id, created_at, updated_at`

func (r *shiftRepoPG) scanShift(row pgx.Row) (*WorkShift, error) {
	var w WorkShift
	var shiftDate *time.Time
	err := row.Scan(&w.ID, &w.DoctorID, &w.Weekday, &shiftDate,
		&w.Start, &w.End, &w.RoomID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if shiftDate != nil {
		w.Date = &Date{shiftDate.UTC()}
	}
	return &w, nil
}

func (r *shiftRepoPG) Create(ctx context.Context, w *WorkShift) error {
	w.ID = uuid.New()
	var shiftDate *time.Time
	if w.Date != nil {
		shiftDate = &w.Date.Time
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO work_shift (id, doctor_id, weekday, shift_date, start_time, end_time, room_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		w.ID, w.DoctorID, w.Weekday, shiftDate, int(w.Start), int(w.End), w.RoomID)
	return err
}

func (r *shiftRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*WorkShift, error) {
	w, err := r.scanShift(r.conn(ctx).QueryRow(ctx, `SELECT `+shiftCols+` FROM work_shift WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShiftNotFound
	}
	return w, err
}

func (r *shiftRepoPG) Update(ctx context.Context, w *WorkShift) error {
	var shiftDate *time.Time
	if w.Date != nil {
		shiftDate = &w.Date.Time
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE work_shift SET weekday=$2, shift_date=$3, start_time=$4, end_time=$5, room_id=$6, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Weekday, shiftDate, int(w.Start), int(w.End), w.RoomID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (r *shiftRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM work_shift WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (r *shiftRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WorkShift, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM work_shift WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+shiftCols+` FROM work_shift
		WHERE doctor_id = $1 ORDER BY start_time LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*WorkShift
	for rows.Next() {
		w, err := r.scanShift(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, rows.Err()
}

func (r *shiftRepoPG) ListForDate(ctx context.Context, doctorID uuid.UUID, date Date) ([]*WorkShift, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+shiftCols+` FROM work_shift
		WHERE doctor_id = $1 AND (shift_date = $2 OR (shift_date IS NULL AND weekday = $3))
		ORDER BY start_time`, doctorID, date.Time, date.WeekdayIndex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WorkShift
	for rows.Next() {
		w, err := r.scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const slotCols = `id, doctor_id, slot_date, start_time, end_time, booked, room_id, appointment_id, created_at, updated_at`

func (r *slotRepoPG) scanSlot(row pgx.Row) (*TimeSlot, error) {
	var sl TimeSlot
	var slotDate time.Time
	err := row.Scan(&sl.ID, &sl.DoctorID, &slotDate, &sl.Start, &sl.End,
		&sl.Booked, &sl.RoomID, &sl.AppointmentID, &sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sl.Date = Date{slotDate.UTC()}
	return &sl, nil
}

func (r *slotRepoPG) CreateIfAbsent(ctx context.Context, sl *TimeSlot) (bool, error) {
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	// The UNIQUE (doctor_id, slot_date, start_time) constraint is the
	// duplicate guard, which keeps concurrent materialization safe.
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO time_slot (id, doctor_id, slot_date, start_time, end_time, booked, room_id)
		VALUES ($1,$2,$3,$4,$5,FALSE,$6)
		ON CONFLICT (doctor_id, slot_date, start_time) DO NOTHING`,
		sl.ID, sl.DoctorID, sl.Date.Time, int(sl.Start), int(sl.End), sl.RoomID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	sl, err := r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM time_slot WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return sl, err
}

func (r *slotRepoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date Date, onlyAvailable bool) ([]*TimeSlot, error) {
	query := `SELECT ` + slotCols + ` FROM time_slot WHERE doctor_id = $1 AND slot_date = $2`
	if onlyAvailable {
		query += ` AND booked = FALSE`
	}
	query += ` ORDER BY start_time`
	rows, err := r.conn(ctx).Query(ctx, query, doctorID, date.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TimeSlot
	for rows.Next() {
		sl, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sl)
	}
	return items, rows.Err()
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const apptCols = `id, doctor_id, patient_id, start_time, end_time, status, slot_id,
	service_name, price, duration_minutes, cancellation_reason, meta, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Start, &a.End, &a.Status,
		&a.SlotID, &a.ServiceName, &a.Price, &a.DurationMinutes, &a.CancellationReason,
		&a.Meta, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, start_time, end_time, status,
			slot_id, service_name, price, duration_minutes, cancellation_reason, meta)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.DoctorID, a.PatientID, a.Start, a.End, a.Status,
		a.SlotID, a.ServiceName, a.Price, a.DurationMinutes, a.CancellationReason, a.Meta)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET start_time=$2, end_time=$3, status=$4, slot_id=$5, service_name=$6,
			price=$7, duration_minutes=$8, cancellation_reason=$9, meta=$10, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Start, a.End, a.Status, a.SlotID, a.ServiceName, a.Price,
		a.DurationMinutes, a.CancellationReason, a.Meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `patient_id`, patientID, limit, offset)
}

func (r *appointmentRepoPG) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE `+col+` = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND status <> $2 ORDER BY start_time`, doctorID, StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// =========== Booking Repository ===========

type bookingRepoPG struct {
	pool  *pgxpool.Pool
	appts AppointmentRepository
}

func NewBookingRepoPG(pool *pgxpool.Pool, appts AppointmentRepository) BookingRepository {
	return &bookingRepoPG{pool: pool, appts: appts}
}

// BookSlot claims the slot and creates the appointment inside a single
// transaction. The row lock on the slot serializes racing callers; the
// loser observes booked = TRUE and gets ErrSlotAlreadyBooked.
func (r *bookingRepoPG) BookSlot(ctx context.Context, slotID uuid.UUID, appt *Appointment) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.QuerierFromContext(ctx)

		var sl TimeSlot
		var slotDate time.Time
		err := q.QueryRow(ctx, `SELECT `+slotCols+` FROM time_slot WHERE id = $1 FOR UPDATE`, slotID).
			Scan(&sl.ID, &sl.DoctorID, &slotDate, &sl.Start, &sl.End, &sl.Booked,
				&sl.RoomID, &sl.AppointmentID, &sl.CreatedAt, &sl.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		if sl.Booked {
			return ErrSlotAlreadyBooked
		}
		sl.Date = Date{slotDate.UTC()}

		appt.DoctorID = sl.DoctorID
		appt.Start = sl.Start.At(sl.Date)
		appt.End = sl.End.At(sl.Date)
		appt.SlotID = &sl.ID
		if err := r.appts.Create(ctx, appt); err != nil {
			return err
		}

		// The appointment row must exist before the back-reference is set.
		_, err = q.Exec(ctx,
			`UPDATE time_slot SET booked = TRUE, appointment_id = $2, updated_at = NOW() WHERE id = $1`,
			slotID, appt.ID)
		return err
	})
}
