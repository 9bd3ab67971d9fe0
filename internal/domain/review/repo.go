package review

import (
	"context"

	"github.com/google/uuid"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}
