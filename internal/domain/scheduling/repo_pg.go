package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olawuwo-abideen/healthcare/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func affectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const slotCols = `id, doctor_id, start_time, end_time, amount, is_available, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.DoctorID, &s.StartTime, &s.EndTime, &s.Amount, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *slotRepoPG) Create(ctx context.Context, s *Slot) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, start_time, end_time, amount, is_available)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.DoctorID, s.StartTime, s.EndTime, s.Amount, s.IsAvailable,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM availability_slots WHERE id = $1`, id))
}

func (r *slotRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM availability_slots WHERE id = $1 FOR UPDATE`, id))
}

func (r *slotRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+` FROM availability_slots
		WHERE doctor_id = $1 AND (NOT $2 OR is_available)
		ORDER BY start_time`, doctorID, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) Update(ctx context.Context, s *Slot) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE availability_slots SET start_time=$2, end_time=$3, amount=$4, is_available=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.StartTime, s.EndTime, s.Amount, s.IsAvailable,
	).Scan(&s.UpdatedAt)
}

func (r *slotRepoPG) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return affectOne(r.conn(ctx).Exec(ctx,
		`UPDATE availability_slots SET is_available=$2, updated_at=NOW() WHERE id = $1`, id, available))
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return affectOne(r.conn(ctx).Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id))
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, patient_id, slot_id, status, created_at, updated_at`

const apptWithSlotSelect = `
	SELECT a.id, a.patient_id, a.slot_id, a.status, a.created_at, a.updated_at,
		s.id, s.doctor_id, s.start_time, s.end_time, s.amount, s.is_available, s.created_at, s.updated_at
	FROM appointments a
	JOIN availability_slots s ON s.id = a.slot_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.PatientID, &a.SlotID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAppointmentWithSlot(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var s Slot
	err := row.Scan(&a.ID, &a.PatientID, &a.SlotID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		&s.ID, &s.DoctorID, &s.StartTime, &s.EndTime, &s.Amount, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Slot = &s
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, slot_id, status)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.SlotID, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (r *appointmentRepoPG) GetWithSlot(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointmentWithSlot(r.conn(ctx).QueryRow(ctx, apptWithSlotSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) listWithSlot(ctx context.Context, where string, arg interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, apptWithSlotSelect+` WHERE `+where+` ORDER BY s.start_time DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointmentWithSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.listWithSlot(ctx, `a.patient_id = $1`, patientID)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return r.listWithSlot(ctx, `s.doctor_id = $1`, doctorID)
}

func (r *appointmentRepoPG) UpdateSlot(ctx context.Context, id, slotID uuid.UUID) error {
	return affectOne(r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET slot_id=$2, updated_at=NOW() WHERE id = $1`, id, slotID))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return affectOne(r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status=$2, updated_at=NOW() WHERE id = $1`, id, status))
}

func (r *appointmentRepoPG) HasLive(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var live bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE slot_id = $1 AND status <> 'canceled')`, slotID).Scan(&live)
	return live, err
}
