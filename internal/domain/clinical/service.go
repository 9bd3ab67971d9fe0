package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const (
	msgPatientNotFound      = "Patient not found"
	msgNotAPatient          = "The specified user is not a patient"
	msgPrescriptionNotFound = "Prescription not found"
	msgRecordNotFound       = "Medical Record not found"
)

// UserDirectory resolves the patient a record is written for.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	prescriptions PrescriptionRepository
	records       MedicalRecordRepository
	users         UserDirectory
}

func NewService(prescriptions PrescriptionRepository, records MedicalRecordRepository, users UserDirectory) *Service {
	return &Service{prescriptions: prescriptions, records: records, users: users}
}

// patient loads id and checks it holds the patient role.
func (s *Service) patient(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.NotFound(msgPatientNotFound)
		}
		return nil, err
	}
	if !u.IsPatient() {
		return nil, apperror.BadRequest(msgNotAPatient)
	}
	return u, nil
}

// canRead reports whether viewer may see patientID's records: doctors see
// any patient, patients only themselves.
func canRead(viewer *auth.Principal, patientID uuid.UUID) error {
	if viewer.Role == auth.RolePatient && viewer.ID != patientID {
		return apperror.Forbidden("You can only view your own records")
	}
	return nil
}

// -- Prescription --

func (s *Service) CreatePrescription(ctx context.Context, doctorID, patientID uuid.UUID, req PrescriptionRequest) (*Prescription, error) {
	if _, err := s.patient(ctx, patientID); err != nil {
		return nil, err
	}
	p := &Prescription{
		DoctorID:     doctorID,
		PatientID:    patientID,
		Medicine:     req.Medicine,
		Dosage:       req.Dosage,
		Instructions: req.Instructions,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, apperror.FromDB(err, msgPrescriptionNotFound)
	}
	return p, nil
}

// ListPrescriptions returns the patient's prescriptions, newest first. An
// empty history is reported as not found.
func (s *Service) ListPrescriptions(ctx context.Context, viewer *auth.Principal, patientID uuid.UUID) ([]*Prescription, error) {
	if err := canRead(viewer, patientID); err != nil {
		return nil, err
	}
	items, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperror.Internal(err, "list prescriptions")
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("No prescriptions found for this patient")
	}
	return items, nil
}

// UpdatePrescription rewrites a prescription. Only its author may change it.
func (s *Service) UpdatePrescription(ctx context.Context, doctorID, id uuid.UUID, req PrescriptionRequest) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgPrescriptionNotFound)
	}
	if p.DoctorID != doctorID {
		return nil, apperror.Forbidden("You can only update your own prescription")
	}
	p.Medicine = req.Medicine
	p.Dosage = req.Dosage
	p.Instructions = req.Instructions
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, apperror.FromDB(err, msgPrescriptionNotFound)
	}
	return p, nil
}

// -- Medical Record --

// CreateMedicalRecord stores a record; fileURL is empty when nothing was
// attached.
func (s *Service) CreateMedicalRecord(ctx context.Context, doctorID, patientID uuid.UUID, req MedicalRecordRequest, fileURL string) (*MedicalRecord, error) {
	if _, err := s.patient(ctx, patientID); err != nil {
		return nil, err
	}
	m := &MedicalRecord{
		DoctorID:    doctorID,
		PatientID:   patientID,
		Description: req.Description,
	}
	if fileURL != "" {
		m.FileURL = &fileURL
	}
	if err := s.records.Create(ctx, m); err != nil {
		return nil, apperror.FromDB(err, msgRecordNotFound)
	}
	return m, nil
}

func (s *Service) ListMedicalRecords(ctx context.Context, viewer *auth.Principal, patientID uuid.UUID) ([]*MedicalRecord, error) {
	if err := canRead(viewer, patientID); err != nil {
		return nil, err
	}
	items, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperror.Internal(err, "list medical records")
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("No Medical Record found for this patient")
	}
	return items, nil
}

// UpdateMedicalRecord rewrites the description and, when fileURL is set,
// replaces the attachment. The previous attachment is kept otherwise.
func (s *Service) UpdateMedicalRecord(ctx context.Context, doctorID, id uuid.UUID, req MedicalRecordRequest, fileURL string) (*MedicalRecord, error) {
	m, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgRecordNotFound)
	}
	if m.DoctorID != doctorID {
		return nil, apperror.Forbidden("You can only update your own medical record")
	}
	m.Description = req.Description
	if fileURL != "" {
		m.FileURL = &fileURL
	}
	if err := s.records.Update(ctx, m); err != nil {
		return nil, apperror.FromDB(err, msgRecordNotFound)
	}
	return m, nil
}
