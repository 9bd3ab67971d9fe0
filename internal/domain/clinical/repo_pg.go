package clinical

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

func connOr(ctx context.Context, pool *pgxpool.Pool) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) queryable { return connOr(ctx, r.pool) }

const prescriptionCols = `id, doctor_id, patient_id, medicine, dosage, instructions, created_at, updated_at`

func (r *prescriptionRepoPG) scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.DoctorID, &p.PatientID, &p.Medicine, &p.Dosage, &p.Instructions,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, doctor_id, patient_id, medicine, dosage, instructions)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.DoctorID, p.PatientID, p.Medicine, p.Dosage, p.Instructions,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := r.scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := r.scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE prescriptions SET medicine = $2, dosage = $3, instructions = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Medicine, p.Dosage, p.Instructions,
	).Scan(&p.UpdatedAt)
}

// =========== Medical Record Repository ===========

type medicalRecordRepoPG struct{ pool *pgxpool.Pool }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepoPG{pool: pool}
}

func (r *medicalRecordRepoPG) conn(ctx context.Context) queryable { return connOr(ctx, r.pool) }

const recordCols = `id, doctor_id, patient_id, description, file_url, created_at, updated_at`

func (r *medicalRecordRepoPG) scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	err := row.Scan(&m.ID, &m.DoctorID, &m.PatientID, &m.Description, &m.FileURL,
		&m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicalRecordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (id, doctor_id, patient_id, description, file_url)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		m.ID, m.DoctorID, m.PatientID, m.Description, m.FileURL,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *medicalRecordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *medicalRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *medicalRecordRepoPG) Update(ctx context.Context, m *MedicalRecord) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_records SET description = $2, file_url = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Description, m.FileURL,
	).Scan(&m.UpdatedAt)
}
