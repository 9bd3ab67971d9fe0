package identity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/blobstore"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

// UserImageField is the multipart field carrying a profile image.
const UserImageField = "userimage"

type Handler struct {
	svc     *Service
	uploads blobstore.Store
}

func NewHandler(svc *Service, uploads blobstore.Store) *Handler {
	return &Handler{svc: svc, uploads: uploads}
}

func (h *Handler) Routes() []auth.Route {
	return []auth.Route{
		{Method: http.MethodPost, Path: "/auth/signup", Public: true, Handler: h.Signup},
		{Method: http.MethodPost, Path: "/auth/login", Public: true, Handler: h.Login},
		{Method: http.MethodPost, Path: "/auth/forgot-password", Public: true, Handler: h.ForgotPassword},
		{Method: http.MethodPost, Path: "/auth/reset-password", Public: true, Handler: h.ResetPassword},
		{Method: http.MethodPost, Path: "/auth/signout", Handler: h.Signout},

		{Method: http.MethodGet, Path: "/users", Handler: h.Profile},
		{Method: http.MethodPut, Path: "/users", Handler: h.UpdateProfile},
		{Method: http.MethodPost, Path: "/users/change-password", Handler: h.ChangePassword},
		{Method: http.MethodPut, Path: "/users/doctor", Roles: []string{auth.RoleDoctor}, Handler: h.UpdateDoctorProfile},
		{Method: http.MethodPut, Path: "/users/user-image", Handler: h.UpdateUserImage},
	}
}

// -- Auth --

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User signup sucessfully", "user": u})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "User login sucessfully",
		"accessToken": res.Token.Token,
		"expiresAt":   res.Token.ExpiresAt,
		"user":        res.User,
	})
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reset token sent to user email"})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully"})
}

func (h *Handler) Signout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Signout(ctx, auth.PrincipalFromContext(ctx)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Sign-out successful"})
}

// -- Profile --

func (h *Handler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.GetUser(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.svc.UpdateProfile(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": u})
}

func (h *Handler) UpdateDoctorProfile(c echo.Context) error {
	var req UpdateDoctorProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.svc.UpdateDoctorProfile(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": u})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.ChangePassword(ctx, auth.UserIDFromContext(ctx), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

func (h *Handler) UpdateUserImage(c echo.Context) error {
	stored, err := blobstore.UploadFormFile(c, h.uploads, UserImageField, "users")
	if err != nil {
		return uploadError(err)
	}
	ctx := c.Request().Context()
	u, err := h.svc.UpdateUserImage(ctx, auth.UserIDFromContext(ctx), stored.URL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": u})
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrNoFile):
		return apperror.BadRequest("%s file is required", UserImageField)
	case errors.Is(err, blobstore.ErrFileTooLarge),
		errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return apperror.BadRequest("%s", err.Error())
	default:
		return apperror.Internal(fmt.Errorf("upload user image: %w", err), "upload failed")
	}
}
