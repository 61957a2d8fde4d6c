package appointment

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/service/appointment"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/httputil"
)

type Handler struct {
	service  *appointment.Service
	resolver *identity.Resolver
}

func NewHandler(service *appointment.Service, resolver *identity.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Create)
		appointments.GET("/:id", h.Get)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
	r.GET("/doctor/appointments", h.ListForDoctor)
	r.GET("/doctor/appointments/stream", h.StreamForDoctor)
	r.GET("/patient/appointments", h.ListForPatient)
	r.GET("/user/appointments", h.ListForUser)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment payload", err))
		return
	}

	apt, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid status payload", err))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

// ListForDoctor lists the acting doctor's appointments. The doctor is
// resolved from the stored demo code first, then the session email.
func (h *Handler) ListForDoctor(c *gin.Context) {
	doctor, err := h.currentDoctor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, err := h.service.ListForDoctor(c.Request.Context(), doctor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	patient, err := h.resolver.CurrentPatient(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if patient == nil {
		httputil.RespondWithError(c, apperrors.NotFound("patient profile", nil))
		return
	}

	appointments, err := h.service.ListForPatient(c.Request.Context(), patient.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

// ListForUser lists appointments across every patient profile linked to
// the signed-in account, decorated with doctor details.
func (h *Handler) ListForUser(c *gin.Context) {
	session := identity.SessionFrom(c.Request.Context())
	if session == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("no session")))
		return
	}

	appointments, err := h.service.ListForUser(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

// StreamForDoctor pushes appointment events for the acting doctor as
// server-sent events until the client disconnects.
func (h *Handler) StreamForDoctor(c *gin.Context) {
	doctor, err := h.currentDoctor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	events := make(chan *model.AppointmentEvent, 16)
	if err := h.service.SubscribeDoctor(c.Request.Context(), doctor.ID, func(e *model.AppointmentEvent) {
		select {
		case events <- e:
		default: // slow client, drop
		}
	}); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent("appointment", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) currentDoctor(c *gin.Context) (*model.Doctor, error) {
	doctor, err := h.resolver.CurrentDoctor(c.Request.Context())
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperrors.Unauthorized(errors.New("no doctor identity"))
	}
	return doctor, nil
}
