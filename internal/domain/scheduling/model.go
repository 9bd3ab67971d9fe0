package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Completed is declared for the data model but no flow
// in this service produces it.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// Slot is a bookable window on a doctor's calendar. IsAvailable is false
// while a live appointment holds it.
type Slot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctorId"`
	StartTime   time.Time `db:"start_time" json:"startTime"`
	EndTime     time.Time `db:"end_time" json:"endTime"`
	Amount      float64   `db:"amount" json:"amount"`
	IsAvailable bool      `db:"is_available" json:"isAvailable"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Appointment binds a patient to a slot. Slot is populated by the read
// queries that join availability_slots.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patientId"`
	SlotID    uuid.UUID `db:"slot_id" json:"availabilitySlotId"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Slot      *Slot     `json:"availabilitySlot,omitempty"`
}

func (a *Appointment) IsCanceled() bool { return a.Status == StatusCanceled }

// IsVisibleTo reports whether userID is the patient or the slot's doctor.
func (a *Appointment) IsVisibleTo(userID uuid.UUID) bool {
	if a.PatientID == userID {
		return true
	}
	return a.Slot != nil && a.Slot.DoctorID == userID
}

// -- Requests --

type CreateSlotRequest struct {
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	IsAvailable *bool     `json:"isAvailable"`
}

// UpdateSlotRequest changes only the fields that are present.
type UpdateSlotRequest struct {
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Amount      *float64   `json:"amount" validate:"omitempty,gt=0"`
	IsAvailable *bool      `json:"isAvailable"`
}

type BookRequest struct {
	AvailabilitySlotID string `json:"availabilitySlotId" validate:"required,uuid"`
	PaymentMethodID    string `json:"paymentMethodId" validate:"required"`
}

type RescheduleRequest struct {
	NewAvailabilitySlotID string `json:"newAvailabilitySlotId" validate:"required,uuid"`
}
