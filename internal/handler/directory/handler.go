package directory

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

const ownRecordOnly = "patients may only view their own record"

// Service is the read side of the doctor and patient directory.
type Service interface {
	ListDoctors(ctx context.Context) ([]*model.Doctor, error)
	ListPatients(ctx context.Context) ([]*model.Patient, error)
	GetDoctor(ctx context.Context, id int64) (*model.Doctor, error)
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
	GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error)
	GetPatientByEmail(ctx context.Context, email string) (*model.Patient, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/doctors", h.ListDoctors)
	r.GET("/doctors/:id", h.GetDoctor)
	r.GET("/doctorsEmail/:email", h.GetDoctorByEmail)
	r.GET("/patients/:id", h.GetPatient)
	r.GET("/patientsEmail/:email", h.GetPatientByEmail)
}

// RegisterClinicalRoutes mounts the full patient list. The group must admit
// only staff and doctors.
func (h *Handler) RegisterClinicalRoutes(r *gin.RouterGroup) {
	r.GET("/patients", h.ListPatients)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.ListDoctors(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.ListPatients(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithBadRequest(c, "invalid doctor ID")
		return
	}

	doctor, err := h.service.GetDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithBadRequest(c, "invalid patient ID")
		return
	}

	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if actor.Role == model.RolePatient {
		// only the caller's own record is ever looked up
		own, err := h.service.GetPatientByEmail(c.Request.Context(), actor.Email)
		if err != nil || own.ID != id {
			httputil.RespondWithError(c, ownRecordError(err))
			return
		}
		httputil.RespondWithSuccess(c, own)
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

func (h *Handler) GetDoctorByEmail(c *gin.Context) {
	doctor, err := h.service.GetDoctorByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) GetPatientByEmail(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	email := c.Param("email")
	if actor.Role == model.RolePatient && !strings.EqualFold(strings.TrimSpace(email), actor.Email) {
		httputil.RespondWithError(c, apperrors.Forbidden(ownRecordOnly))
		return
	}

	patient, err := h.service.GetPatientByEmail(c.Request.Context(), email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

// ownRecordError keeps a patient's failed self lookup from telling other
// records apart from missing ones. Store failures still surface as such.
func ownRecordError(err error) error {
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return apperrors.Forbidden(ownRecordOnly)
}

func actorOrAbort(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
	}
	return actor, ok
}
