package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Authorize passes when roles is empty or p holds one of them.
func Authorize(p *Principal, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	if p == nil {
		return apperror.Unauthorized("authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperror.Forbidden("required role: %s", strings.Join(roles, " or "))
}

// RequireRole returns middleware that applies Authorize to the request principal.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(PrincipalFromContext(c.Request().Context()), roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
