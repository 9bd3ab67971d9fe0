package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
	"github.com/olawuwo-abideen/healthcare/pkg/pagination"
)

type Service struct {
	users  UserStore
	logger zerolog.Logger
}

func NewService(users UserStore, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger.With().Str("component", "admin").Logger()}
}

func (s *Service) ListUsers(ctx context.Context, p pagination.Params) (*UserPage, error) {
	return s.list(ctx, "", "Users retrieved sucessfully", p)
}

func (s *Service) ListPatients(ctx context.Context, p pagination.Params) (*UserPage, error) {
	return s.list(ctx, auth.RolePatient, "Patients retrieved successfully", p)
}

func (s *Service) ListDoctors(ctx context.Context, p pagination.Params) (*UserPage, error) {
	return s.list(ctx, auth.RoleDoctor, "Doctors retrieved successfully", p)
}

func (s *Service) list(ctx context.Context, role, msg string, p pagination.Params) (*UserPage, error) {
	users, total, err := s.users.List(ctx, role, p.Limit(), p.Offset())
	if err != nil {
		return nil, apperror.Internal(err, "list users")
	}
	return newUserPage(msg, users, total, p), nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.getWithRole(ctx, id, auth.RolePatient, "Patient with ID %s not found")
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.getWithRole(ctx, id, auth.RoleDoctor, "Doctor with ID %s not found")
}

func (s *Service) getWithRole(ctx context.Context, id uuid.UUID, role, notFound string) (*identity.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound(notFound, id)
		}
		return nil, apperror.Internal(err, "get user")
	}
	if u.Role != role {
		return nil, apperror.NotFound(notFound, id)
	}
	return u, nil
}

// DeleteUser soft-deletes id. Admins cannot delete their own account.
func (s *Service) DeleteUser(ctx context.Context, adminID, id uuid.UUID) error {
	if adminID == id {
		return apperror.BadRequest("You cannot delete your own account")
	}
	if err := s.users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("User with ID %s not found.", id)
		}
		return apperror.Internal(err, "delete user")
	}
	s.logger.Info().Str("admin_id", adminID.String()).Str("user_id", id.String()).Msg("user deleted")
	return nil
}
