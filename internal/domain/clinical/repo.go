package clinical

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
}

type MedicalRecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
}
