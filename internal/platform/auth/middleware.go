package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID        uuid.UUID
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// PrincipalLookup loads the current state of a token subject. It returns
// ErrPrincipalNotFound when the user no longer exists or is soft-deleted.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error)
}

var ErrPrincipalNotFound = errors.New("principal not found")

// Authenticate verifies the bearer token, rejects revoked tokens, loads the
// subject and stores it on the request context.
func Authenticate(tokens *TokenManager, users PrincipalLookup, revoked RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				if errors.Is(err, ErrExpiredToken) {
					return apperror.Unauthorized("token expired")
				}
				return apperror.Unauthorized("invalid token")
			}

			ctx := c.Request().Context()
			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
				if err != nil {
					return apperror.Internal(err, "check token revocation")
				}
				if isRevoked {
					return apperror.Unauthorized("token has been revoked")
				}
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				return apperror.Unauthorized("invalid token")
			}
			p, err := users.LookupPrincipal(ctx, id)
			if err != nil {
				if errors.Is(err, ErrPrincipalNotFound) {
					return apperror.Unauthorized("user no longer exists")
				}
				return apperror.Internal(err, "load principal")
			}
			p.TokenID = claims.ID
			if claims.ExpiresAt != nil {
				p.ExpiresAt = claims.ExpiresAt.Time
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			c.Set("user_id", p.ID.String())
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.Unauthorized("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperror.Unauthorized("invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.ID)
	return context.WithValue(ctx, UserRoleKey, p.Role)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}
