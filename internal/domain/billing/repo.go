package billing

import (
	"context"

	"github.com/google/uuid"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	// GetForUser returns pgx.ErrNoRows unless id exists and belongs to userID.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error)
}
