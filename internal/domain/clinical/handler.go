package clinical

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/blobstore"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

// MedicalRecordFileField is the multipart field carrying a record's
// attachment.
const MedicalRecordFileField = "uploadedfile"

const recordFolder = "medical-records"

type Handler struct {
	svc     *Service
	uploads blobstore.Store
}

func NewHandler(svc *Service, uploads blobstore.Store) *Handler {
	return &Handler{svc: svc, uploads: uploads}
}

// Routes registers prescriptions and medical records. PUT takes the record's
// own id in :id, POST and GET take the patient's.
func (h *Handler) Routes() []auth.Route {
	doctor := []string{auth.RoleDoctor}
	readers := []string{auth.RoleDoctor, auth.RolePatient}

	return []auth.Route{
		{Method: http.MethodPost, Path: "/prescription/patient/:id", Roles: doctor, Handler: h.CreatePrescription},
		{Method: http.MethodGet, Path: "/prescription/patient/:id", Roles: readers, Handler: h.ListPrescriptions},
		{Method: http.MethodPut, Path: "/prescription/patient/:id", Roles: doctor, Handler: h.UpdatePrescription},

		{Method: http.MethodPost, Path: "/medical-records/patient/:id", Roles: doctor, Handler: h.CreateMedicalRecord},
		{Method: http.MethodGet, Path: "/medical-records/patient/:id", Roles: readers, Handler: h.ListMedicalRecords},
		{Method: http.MethodPut, Path: "/medical-records/patient/:id", Roles: doctor, Handler: h.UpdateMedicalRecord},
	}
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func principal(c echo.Context) (*auth.Principal, error) {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	return p, nil
}

// -- Prescription Handlers --

func (h *Handler) CreatePrescription(c echo.Context) error {
	patientID, err := paramID(c)
	if err != nil {
		return err
	}
	var req PrescriptionRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.CreatePrescription(ctx, auth.UserIDFromContext(ctx), patientID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Prescription submitted successfully", "data": p})
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	patientID, err := paramID(c)
	if err != nil {
		return err
	}
	viewer, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPrescriptions(c.Request().Context(), viewer, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Prescriptions retrieved successfully", "data": items})
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req PrescriptionRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.UpdatePrescription(ctx, auth.UserIDFromContext(ctx), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Prescription updated successfully", "data": p})
}

// -- Medical Record Handlers --

func (h *Handler) CreateMedicalRecord(c echo.Context) error {
	patientID, err := paramID(c)
	if err != nil {
		return err
	}
	var req MedicalRecordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	url, err := h.attachment(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.CreateMedicalRecord(ctx, auth.UserIDFromContext(ctx), patientID, req, url)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Medical Record submitted successfully", "data": m})
}

func (h *Handler) ListMedicalRecords(c echo.Context) error {
	patientID, err := paramID(c)
	if err != nil {
		return err
	}
	viewer, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMedicalRecords(c.Request().Context(), viewer, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Medical Record retrieved successfully", "data": items})
}

func (h *Handler) UpdateMedicalRecord(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req MedicalRecordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	url, err := h.attachment(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.UpdateMedicalRecord(ctx, auth.UserIDFromContext(ctx), id, req, url)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Medical Record updated successfully", "data": m})
}

// attachment uploads the optional record file and returns its public URL, or
// "" when the request has none.
func (h *Handler) attachment(c echo.Context) (string, error) {
	stored, err := blobstore.UploadFormFile(c, h.uploads, MedicalRecordFileField, recordFolder)
	switch {
	case err == nil:
		return stored.URL, nil
	case errors.Is(err, blobstore.ErrNoFile):
		return "", nil
	case errors.Is(err, blobstore.ErrFileTooLarge),
		errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return "", apperror.BadRequest("%s", err.Error())
	default:
		return "", apperror.Internal(fmt.Errorf("upload medical record: %w", err), "upload failed")
	}
}
