package scheduling

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/olawuwo-abideen/healthcare/internal/domain/billing"
	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/internal/platform/db"
	"github.com/olawuwo-abideen/healthcare/internal/platform/notification"
	"github.com/olawuwo-abideen/healthcare/internal/platform/payment"
	"github.com/olawuwo-abideen/healthcare/internal/platform/telemetry"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const (
	msgAppointmentNotFound = "Appointment not found"
	msgSlotAlreadyBooked   = "This slot is already booked"
	msgNewSlotUnavailable  = "New slot is not available"
	msgNotAuthorized       = "Not authorized"
)

// Ledger records captured payments.
type Ledger interface {
	Record(ctx context.Context, t *billing.Transaction) error
}

// UserDirectory resolves users for notification addressing.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Notifier sends appointment mail. Delivery failures are the notifier's
// concern and never reach the caller.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, to notification.Recipient, doctorFirstname string, start time.Time)
	AppointmentCanceled(ctx context.Context, to notification.Recipient, start time.Time)
}

// BookingObserver counts booking outcomes.
type BookingObserver interface {
	ObserveBooking(outcome string)
}

type BookingDeps struct {
	Tx       db.TxRunner
	Slots    *Service
	Appts    AppointmentRepository
	Ledger   Ledger
	Gateway  payment.Gateway
	Users    UserDirectory
	Notifier Notifier
	Observer BookingObserver
	Currency string
	Logger   zerolog.Logger
}

// BookingService runs the appointment lifecycle. Book, Reschedule and Cancel
// each run in one transaction holding row locks on every slot they touch, so
// two callers can never both take the same slot.
type BookingService struct {
	tx       db.TxRunner
	slots    *Service
	appts    AppointmentRepository
	ledger   Ledger
	gateway  payment.Gateway
	users    UserDirectory
	notifier Notifier
	observer BookingObserver
	currency string
	logger   zerolog.Logger
}

func NewBookingService(d BookingDeps) *BookingService {
	currency := d.Currency
	if currency == "" {
		currency = "usd"
	}
	return &BookingService{
		tx:       d.Tx,
		slots:    d.Slots,
		appts:    d.Appts,
		ledger:   d.Ledger,
		gateway:  d.Gateway,
		users:    d.Users,
		notifier: d.Notifier,
		observer: d.Observer,
		currency: currency,
		logger:   d.Logger.With().Str("component", "booking").Logger(),
	}
}

// Book captures the slot's fee and creates a confirmed appointment. No
// idempotency key is sent to the gateway; if persisting fails after a
// successful capture the charge stands and is logged for manual follow-up.
func (s *BookingService) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	slotID, err := uuid.Parse(req.AvailabilitySlotID)
	if err != nil {
		return nil, apperror.BadRequest("availabilitySlotId must be a valid UUID")
	}

	var (
		appt    *Appointment
		slot    *Slot
		intent  *payment.Intent
		outcome = telemetry.OutcomeError
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		slot, err = s.slots.lock(ctx, slotID)
		if err != nil {
			return apperror.FromDB(err, msgSlotNotFound)
		}
		if !slot.IsAvailable {
			outcome = telemetry.OutcomeSlotUnavailable
			return apperror.BadRequest(msgSlotAlreadyBooked)
		}

		intent, err = s.gateway.Capture(ctx, payment.CaptureRequest{
			AmountMinor:     payment.ToMinorUnits(slot.Amount),
			Currency:        s.currency,
			PaymentMethodID: req.PaymentMethodID,
			Description:     "Appointment booking",
			Metadata: map[string]string{
				"patient_id": patientID.String(),
				"slot_id":    slot.ID.String(),
			},
		})
		if err != nil {
			outcome = telemetry.OutcomePaymentFailed
			return paymentFailed(err)
		}

		if err := s.slots.Reserve(ctx, slot.ID); err != nil {
			return apperror.FromDB(err, msgSlotNotFound)
		}
		slot.IsAvailable = false

		appt = &Appointment{PatientID: patientID, SlotID: slot.ID, Status: StatusConfirmed}
		if err := s.appts.Create(ctx, appt); err != nil {
			return apperror.FromDB(err, msgAppointmentNotFound)
		}
		appt.Slot = slot

		return s.ledger.Record(ctx, &billing.Transaction{
			UserID:          patientID,
			AppointmentID:   &appt.ID,
			Amount:          slot.Amount,
			Status:          billing.StatusSuccess,
			PaymentIntentID: intent.ID,
			Currency:        intent.Currency,
		})
	})
	if err != nil {
		if intent != nil {
			s.logger.Error().Err(err).
				Str("payment_intent_id", intent.ID).
				Str("patient_id", patientID.String()).
				Str("slot_id", slotID.String()).
				Msg("payment captured but booking was not persisted")
		}
		s.observe(outcome)
		return nil, apperror.FromDB(err, msgAppointmentNotFound)
	}
	s.observe(telemetry.OutcomeBooked)

	s.sendConfirmation(ctx, patientID, slot)
	return appt, nil
}

func paymentFailed(err error) error {
	var declined *payment.DeclinedError
	if errors.As(err, &declined) {
		return apperror.BadRequest("Payment failed: %s", declined.Reason)
	}
	return apperror.BadRequest("Payment failed: %s", err.Error())
}

// Reschedule moves the patient's appointment to another available slot,
// releasing the old one.
func (s *BookingService) Reschedule(ctx context.Context, patientID, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	newSlotID, err := uuid.Parse(req.NewAvailabilitySlotID)
	if err != nil {
		return nil, apperror.BadRequest("newAvailabilitySlotId must be a valid UUID")
	}

	var appt *Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appts.GetForUpdate(ctx, id)
		if err != nil {
			return apperror.FromDB(err, msgAppointmentNotFound)
		}
		if appt.PatientID != patientID {
			return apperror.Forbidden("You can only reschedule your own appointment")
		}
		if appt.IsCanceled() {
			return apperror.BadRequest("Canceled appointments cannot be rescheduled")
		}
		if newSlotID == appt.SlotID {
			return apperror.BadRequest(msgNewSlotUnavailable)
		}

		// Lock both slots in a fixed order so concurrent reschedules cannot deadlock.
		locked, err := s.lockPair(ctx, appt.SlotID, newSlotID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.BadRequest(msgNewSlotUnavailable)
			}
			return err
		}
		newSlot := locked[newSlotID]
		if newSlot == nil || !newSlot.IsAvailable {
			return apperror.BadRequest(msgNewSlotUnavailable)
		}

		if locked[appt.SlotID] != nil {
			if err := s.slots.Release(ctx, appt.SlotID); err != nil {
				return err
			}
		}
		if err := s.slots.Reserve(ctx, newSlotID); err != nil {
			return err
		}
		if err := s.appts.UpdateSlot(ctx, appt.ID, newSlotID); err != nil {
			return err
		}

		newSlot.IsAvailable = false
		appt.SlotID = newSlotID
		appt.Slot = newSlot
		return nil
	})
	if err != nil {
		return nil, apperror.FromDB(err, msgAppointmentNotFound)
	}
	return appt, nil
}

// lockPair locks the current and target slots in id order. A missing current
// slot is tolerated; a missing target is reported as pgx.ErrNoRows.
func (s *BookingService) lockPair(ctx context.Context, current, target uuid.UUID) (map[uuid.UUID]*Slot, error) {
	ids := []uuid.UUID{current, target}
	if bytes.Compare(current[:], target[:]) > 0 {
		ids[0], ids[1] = target, current
	}
	locked := make(map[uuid.UUID]*Slot, 2)
	for _, id := range ids {
		slot, err := s.slots.lock(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) && id == current {
				continue
			}
			return nil, err
		}
		locked[id] = slot
	}
	return locked, nil
}

// Cancel cancels the patient's appointment and frees its slot. A missing
// appointment and someone else's appointment are indistinguishable to the
// caller.
func (s *BookingService) Cancel(ctx context.Context, patientID, id uuid.UUID) error {
	var slot *Slot
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		appt, err := s.appts.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.Forbidden(msgNotAuthorized)
			}
			return err
		}
		if appt.PatientID != patientID {
			return apperror.Forbidden(msgNotAuthorized)
		}
		if appt.IsCanceled() {
			return apperror.BadRequest("Appointment is already canceled")
		}

		slot, err = s.slots.lock(ctx, appt.SlotID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err := s.appts.UpdateStatus(ctx, appt.ID, StatusCanceled); err != nil {
			return err
		}
		if slot != nil {
			if err := s.slots.Release(ctx, slot.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperror.FromDB(err, msgAppointmentNotFound)
	}

	if slot != nil {
		s.sendCancellation(ctx, patientID, slot)
	}
	return nil
}

// -- Reads --

func (s *BookingService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	items, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperror.Internal(err, "list patient appointments")
	}
	return nonNil(items), nil
}

func (s *BookingService) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	items, err := s.appts.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperror.Internal(err, "list doctor appointments")
	}
	return nonNil(items), nil
}

// Get returns the appointment when userID is its patient or its doctor.
func (s *BookingService) Get(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appts.GetWithSlot(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgAppointmentNotFound)
	}
	if !appt.IsVisibleTo(userID) {
		return nil, apperror.NotFound(msgAppointmentNotFound)
	}
	return appt, nil
}

func nonNil(items []*Appointment) []*Appointment {
	if items == nil {
		return []*Appointment{}
	}
	return items
}

// -- Notifications --

func (s *BookingService) sendConfirmation(ctx context.Context, patientID uuid.UUID, slot *Slot) {
	patient, ok := s.lookup(ctx, patientID)
	if !ok {
		return
	}
	var doctorName string
	if doctor, ok := s.lookup(ctx, slot.DoctorID); ok {
		doctorName = doctor.FirstnameOrEmpty()
	}
	s.notifier.AppointmentConfirmed(ctx, recipient(patient), doctorName, slot.StartTime)
}

func (s *BookingService) sendCancellation(ctx context.Context, patientID uuid.UUID, slot *Slot) {
	patient, ok := s.lookup(ctx, patientID)
	if !ok {
		return
	}
	s.notifier.AppointmentCanceled(ctx, recipient(patient), slot.StartTime)
}

func (s *BookingService) lookup(ctx context.Context, id uuid.UUID) (*identity.User, bool) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", id.String()).Msg("skip notification: user lookup failed")
		return nil, false
	}
	return u, true
}

func recipient(u *identity.User) notification.Recipient {
	return notification.Recipient{Email: u.Email, Firstname: u.FirstnameOrEmpty()}
}

func (s *BookingService) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveBooking(outcome)
	}
}
