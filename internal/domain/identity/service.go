package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const (
	msgEmailInUse         = "Email is already in use"
	msgPhoneInUse         = "Phone number is already in use"
	msgBadCredentials     = "Email or password is incorrect"
	msgUnknownEmail       = "Email does not exist in our record."
	msgResetLinkExpired   = "Reset password link expired."
	msgResetTokenMismatch = "Reset token expired. please try again."
	msgUserNotFound       = "User not found"
)

// ResetNotifier mails password reset links.
type ResetNotifier interface {
	PasswordReset(ctx context.Context, to, link string)
}

type Service struct {
	users    UserRepository
	tokens   *auth.TokenManager
	revoked  auth.RevocationStore
	notifier ResetNotifier
	resetURL string
	logger   zerolog.Logger
}

func NewService(users UserRepository, tokens *auth.TokenManager, revoked auth.RevocationStore, notifier ResetNotifier, resetURL string, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		revoked:  revoked,
		notifier: notifier,
		resetURL: strings.TrimSuffix(resetURL, "/"),
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// -- Registration --

// Signup registers a patient or doctor. Admins are created out of band with
// CreateAdmin.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if req.Role != auth.RolePatient && req.Role != auth.RoleDoctor {
		return nil, apperror.BadRequest("role must be patient or doctor")
	}
	return s.register(ctx, req)
}

// CreateAdmin registers an administrator.
func (s *Service) CreateAdmin(ctx context.Context, req SignupRequest) (*User, error) {
	req.Role = auth.RoleAdmin
	return s.register(ctx, req)
}

func (s *Service) register(ctx context.Context, req SignupRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, req.PhoneNumber, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal(err, "hash password")
	}

	u := &User{
		Firstname:    strPtr(req.Firstname),
		Lastname:     strPtr(req.Lastname),
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, uniqueConflict(err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return u, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.Conflict(msgEmailInUse)
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return apperror.FromDB(err, msgUserNotFound)
	}
}

// ensurePhoneFree fails when phone belongs to anyone other than self.
func (s *Service) ensurePhoneFree(ctx context.Context, phone string, self uuid.UUID) error {
	other, err := s.users.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		if other.ID == self {
			return nil
		}
		return apperror.Conflict(msgPhoneInUse)
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return apperror.FromDB(err, msgUserNotFound)
	}
}

// uniqueConflict names the column behind a unique violation that slipped
// past the pre-checks under concurrent signups.
func uniqueConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return apperror.Conflict(msgEmailInUse)
		case "users_phonenumber_key":
			return apperror.Conflict(msgPhoneInUse)
		}
	}
	return apperror.FromDB(err, msgUserNotFound)
}

// -- Session --

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.Unauthorized(msgBadCredentials)
		}
		return nil, apperror.FromDB(err, msgUserNotFound)
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperror.Internal(err, "issue token")
	}
	return &LoginResult{Token: tok, User: u}, nil
}

// Signout revokes the caller's current token until it would have expired.
func (s *Service) Signout(ctx context.Context, p *auth.Principal) error {
	if p == nil || p.ID == uuid.Nil {
		return apperror.Unauthorized("User identification is missing")
	}
	if err := s.revoked.Revoke(ctx, p.TokenID, p.ID.String(), p.ExpiresAt); err != nil {
		return apperror.Internal(err, "revoke token")
	}
	return nil
}

// LookupPrincipal implements auth.PrincipalLookup.
func (s *Service) LookupPrincipal(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, err
	}
	return u.Principal(), nil
}

// -- Password reset --

// ForgotPassword stores a signed reset token on the user and mails the link.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return apperror.FromDB(err, msgUnknownEmail)
	}

	token, err := s.tokens.IssueReset(u.Email)
	if err != nil {
		return apperror.Internal(err, "issue reset token")
	}
	if err := s.users.SetResetToken(ctx, u.ID, &token); err != nil {
		return apperror.FromDB(err, msgUnknownEmail)
	}

	s.notifier.PasswordReset(ctx, u.Email, s.resetURL+"/"+token)
	return nil
}

// ResetPassword accepts a reset token only while it is unexpired and still
// the one stored on the user; a successful reset clears it.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email, err := s.tokens.ParseReset(req.Token)
	if err != nil {
		return apperror.BadRequest(msgResetLinkExpired)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.BadRequest(msgResetTokenMismatch)
		}
		return apperror.FromDB(err, msgUserNotFound)
	}
	if u.ResetToken == nil || *u.ResetToken != req.Token {
		return apperror.BadRequest(msgResetTokenMismatch)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperror.Internal(err, "hash password")
	}
	return apperror.FromDB(s.users.UpdatePassword(ctx, u.ID, hash), msgUserNotFound)
}

// -- Profile --

// GetUser returns an active user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgUserNotFound)
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return apperror.BadRequest("The password you entered does not match your current password.")
	}
	if req.Password != req.ConfirmPassword {
		return apperror.BadRequest("New password and confirmation do not match.")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperror.Internal(err, "hash password")
	}
	return apperror.FromDB(s.users.UpdatePassword(ctx, id, hash), msgUserNotFound)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(ctx, u, req); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, uniqueConflict(err)
	}
	return u, nil
}

func (s *Service) UpdateDoctorProfile(ctx context.Context, id uuid.UUID, req UpdateDoctorProfileRequest) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsDoctor() {
		return nil, apperror.Forbidden("only doctors have a doctor profile")
	}
	if err := s.applyProfile(ctx, u, req.UpdateProfileRequest); err != nil {
		return nil, err
	}
	u.Specialization = strPtr(req.Specialization)
	years := req.ExperienceYears
	u.ExperienceYears = &years
	u.ClinicAddress = strPtr(req.ClinicAddress)

	if err := s.users.Update(ctx, u); err != nil {
		return nil, uniqueConflict(err)
	}
	return u, nil
}

func (s *Service) applyProfile(ctx context.Context, u *User, req UpdateProfileRequest) error {
	if req.PhoneNumber != u.PhoneNumber {
		if err := s.ensurePhoneFree(ctx, req.PhoneNumber, u.ID); err != nil {
			return err
		}
	}
	age := req.Age
	gender := req.Gender
	u.Firstname = strPtr(req.Firstname)
	u.Lastname = strPtr(req.Lastname)
	u.Age = &age
	u.PhoneNumber = req.PhoneNumber
	u.Gender = &gender
	return nil
}

// UpdateUserImage records the public URL of a freshly uploaded image.
func (s *Service) UpdateUserImage(ctx context.Context, id uuid.UUID, url string) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.UserImage = &url
	if err := s.users.Update(ctx, u); err != nil {
		return nil, apperror.FromDB(err, msgUserNotFound)
	}
	return u, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
