package appointment

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

// Service is the appointment workflow the handler drives.
type Service interface {
	Create(ctx context.Context, actor model.Actor, req model.CreateAppointmentRequest) (*model.EnrichedAppointment, error)
	Reschedule(ctx context.Context, actor model.Actor, id int64, req model.RescheduleAppointmentRequest) (*model.EnrichedAppointment, error)
	Cancel(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error)
	Complete(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error)
	Remove(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error)
	Get(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error)
	ListAll(ctx context.Context, actor model.Actor) ([]model.EnrichedAppointment, error)
	ListByPatient(ctx context.Context, actor model.Actor, patientID int64) ([]model.EnrichedAppointment, error)
	ListByDoctor(ctx context.Context, actor model.Actor, doctorID int64) ([]model.EnrichedAppointment, error)
	View(ctx context.Context, actor model.Actor) (*model.AppointmentView, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the routes every authenticated role may call. The
// service decides per record what the caller can see or change.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/appointmentsPatient/:patientId", h.ListPatientAppointments)
	r.GET("/appointmentsDoctor/:doctorId", h.ListDoctorAppointments)
	r.GET("/myAppointments", h.MyAppointments)
	r.GET("/appointments/:id", h.GetAppointment)
	r.POST("/addAppointments", h.CreateAppointment)
	r.PUT("/appointments/:id", h.RescheduleAppointment)
	r.DELETE("/removeAppointments/:id", h.CancelAppointment)
}

// RegisterStaffRoutes mounts the routes reserved for receptionists and admins.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.ListAppointments)
	r.POST("/appointments/:id/complete", h.CompleteAppointment)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, validator.Message(err))
		return
	}

	apt, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "appointment")
	if !ok {
		return
	}

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	apts, err := h.service.ListAll(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apts)
}

func (h *Handler) ListPatientAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	patientID, ok := idParam(c, "patientId", "patient")
	if !ok {
		return
	}

	apts, err := h.service.ListByPatient(c.Request.Context(), actor, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apts)
}

func (h *Handler) ListDoctorAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	doctorID, ok := idParam(c, "doctorId", "doctor")
	if !ok {
		return
	}

	apts, err := h.service.ListByDoctor(c.Request.Context(), actor, doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apts)
}

// MyAppointments returns the caller's role projection.
func (h *Handler) MyAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	view, err := h.service.View(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, view)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "appointment")
	if !ok {
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, validator.Message(err))
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "appointment")
	if !ok {
		return
	}

	apt, err := h.service.Complete(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

// CancelAppointment cancels, or with ?remove=true cancels and deletes.
func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "appointment")
	if !ok {
		return
	}

	remove := false
	if raw := c.Query("remove"); raw != "" {
		var err error
		if remove, err = strconv.ParseBool(raw); err != nil {
			httputil.RespondWithBadRequest(c, "remove must be true or false")
			return
		}
	}

	var (
		apt *model.EnrichedAppointment
		err error
	)
	if remove {
		apt, err = h.service.Remove(c.Request.Context(), actor, id)
	} else {
		apt, err = h.service.Cancel(c.Request.Context(), actor, id)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func actorOrAbort(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
	}
	return actor, ok
}

func idParam(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithBadRequest(c, "invalid "+resource+" ID")
		return 0, false
	}
	return id, true
}
