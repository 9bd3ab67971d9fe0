package billing

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Transaction records one captured payment. Rows are written by the booking
// flow and never updated.
type Transaction struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"userId"`
	AppointmentID   *uuid.UUID `db:"appointment_id" json:"appointmentId,omitempty"`
	Amount          float64    `db:"amount" json:"amount"`
	Status          string     `db:"status" json:"status"`
	PaymentIntentID string     `db:"payment_intent_id" json:"paymentIntentId"`
	Currency        string     `db:"currency" json:"currency"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Page is the transactions list envelope.
type Page struct {
	TotalTransactions int            `json:"totalTransactions"`
	TotalPage         int            `json:"totalPage"`
	CurrentPage       int            `json:"currentPage"`
	Transactions      []*Transaction `json:"transactions"`
}
