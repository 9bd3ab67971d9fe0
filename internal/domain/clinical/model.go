package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is a medication order a doctor writes for a patient.
type Prescription struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctorId"`
	PatientID    uuid.UUID `db:"patient_id" json:"patientId"`
	Medicine     string    `db:"medicine" json:"medicine"`
	Dosage       string    `db:"dosage" json:"dosage"`
	Instructions string    `db:"instructions" json:"instructions"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// MedicalRecord is a doctor's note about a patient with an optional
// attachment kept in object storage.
type MedicalRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctorId"`
	PatientID   uuid.UUID `db:"patient_id" json:"patientId"`
	Description string    `db:"description" json:"description"`
	FileURL     *string   `db:"file_url" json:"uploadedfiles,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// -- Requests --

type PrescriptionRequest struct {
	Medicine     string `json:"medicine" validate:"required,max=255"`
	Dosage       string `json:"dosage" validate:"required,max=255"`
	Instructions string `json:"instructions" validate:"required"`
}

// MedicalRecordRequest is accepted as JSON or as a multipart form carrying
// the attachment in MedicalRecordFileField.
type MedicalRecordRequest struct {
	Description string `json:"description" form:"description" validate:"required"`
}
