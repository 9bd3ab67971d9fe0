package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository reads and writes users. Lookups skip soft-deleted rows and
// return pgx.ErrNoRows when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, token *string) error
	// List returns users with the given role, or every user when role is "".
	List(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
