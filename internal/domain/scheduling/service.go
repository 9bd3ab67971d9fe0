package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const (
	msgSlotNotFound = "Availability slot not found"
	msgSlotBooked   = "Availability slot is booked"
)

// Service is the slot registry: doctors manage their own slots, and the
// booking flow reserves and releases them.
type Service struct {
	slots SlotRepository
	appts AppointmentRepository
}

func NewService(slots SlotRepository, appts AppointmentRepository) *Service {
	return &Service{slots: slots, appts: appts}
}

func (s *Service) CreateSlot(ctx context.Context, doctorID uuid.UUID, req CreateSlotRequest) (*Slot, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, apperror.BadRequest("endTime must be after startTime")
	}
	slot := &Slot{
		DoctorID:    doctorID,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Amount:      req.Amount,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		slot.IsAvailable = *req.IsAvailable
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, apperror.FromDB(err, msgSlotNotFound)
	}
	return slot, nil
}

// ListSlots returns every slot the doctor owns.
func (s *Service) ListSlots(ctx context.Context, doctorID uuid.UUID) ([]*Slot, error) {
	return s.list(ctx, doctorID, false)
}

// ListAvailable returns the doctor's bookable slots.
func (s *Service) ListAvailable(ctx context.Context, doctorID uuid.UUID) ([]*Slot, error) {
	return s.list(ctx, doctorID, true)
}

func (s *Service) list(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) ([]*Slot, error) {
	items, err := s.slots.ListByDoctor(ctx, doctorID, onlyAvailable)
	if err != nil {
		return nil, apperror.Internal(err, "list availability slots")
	}
	if items == nil {
		items = []*Slot{}
	}
	return items, nil
}

// GetSlot returns a slot owned by doctorID. Another doctor's slot is reported
// as not found.
func (s *Service) GetSlot(ctx context.Context, doctorID, id uuid.UUID) (*Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgSlotNotFound)
	}
	if slot.DoctorID != doctorID {
		return nil, apperror.NotFound(msgSlotNotFound)
	}
	return slot, nil
}

func (s *Service) UpdateSlot(ctx context.Context, doctorID, id uuid.UUID, req UpdateSlotRequest) (*Slot, error) {
	slot, err := s.GetSlot(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	if req.StartTime != nil {
		slot.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		slot.EndTime = req.EndTime.UTC()
	}
	if req.Amount != nil {
		slot.Amount = *req.Amount
	}
	if !slot.EndTime.After(slot.StartTime) {
		return nil, apperror.BadRequest("endTime must be after startTime")
	}
	if req.IsAvailable != nil && *req.IsAvailable != slot.IsAvailable {
		if *req.IsAvailable {
			live, err := s.appts.HasLive(ctx, id)
			if err != nil {
				return nil, apperror.Internal(err, "check slot bookings")
			}
			if live {
				return nil, apperror.BadRequest(msgSlotBooked)
			}
		}
		slot.IsAvailable = *req.IsAvailable
	}

	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, apperror.FromDB(err, msgSlotNotFound)
	}
	return slot, nil
}

// DeleteSlot removes an unbooked slot.
func (s *Service) DeleteSlot(ctx context.Context, doctorID, id uuid.UUID) error {
	if _, err := s.GetSlot(ctx, doctorID, id); err != nil {
		return err
	}
	live, err := s.appts.HasLive(ctx, id)
	if err != nil {
		return apperror.Internal(err, "check slot bookings")
	}
	if live {
		return apperror.Conflict(msgSlotBooked)
	}
	return apperror.FromDB(s.slots.Delete(ctx, id), msgSlotNotFound)
}

// Reserve marks the slot taken.
func (s *Service) Reserve(ctx context.Context, id uuid.UUID) error {
	return s.slots.SetAvailability(ctx, id, false)
}

// Release marks the slot bookable again.
func (s *Service) Release(ctx context.Context, id uuid.UUID) error {
	return s.slots.SetAvailability(ctx, id, true)
}

// lock loads the slot and holds its row lock for the rest of the transaction.
func (s *Service) lock(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.slots.GetForUpdate(ctx, id)
}
