package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// SlotRepository returns pgx.ErrNoRows when a slot does not exist.
type SlotRepository interface {
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) ([]*Slot, error)
	Update(ctx context.Context, s *Slot) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AppointmentRepository returns pgx.ErrNoRows when an appointment does not exist.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	// GetForUpdate locks the appointment row; Slot is not populated.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetWithSlot joins the appointment's slot.
	GetWithSlot(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	// ListByDoctor returns appointments on slots owned by doctorID.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	UpdateSlot(ctx context.Context, id, slotID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// HasLive reports whether a non-canceled appointment holds slotID.
	HasLive(ctx context.Context, slotID uuid.UUID) (bool, error)
}
