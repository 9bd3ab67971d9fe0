package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
)

// UserStore is the slice of the user repository the admin surface needs.
// identity.UserRepository satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	// List returns users with the given role, or every user when role is "".
	List(ctx context.Context, role string, limit, offset int) ([]*identity.User, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
