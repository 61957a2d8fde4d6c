package patient

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/service/patient"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/httputil"
)

type Handler struct {
	service  *patient.Service
	resolver *identity.Resolver
}

func NewHandler(service *patient.Service, resolver *identity.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.PUT("/profile", h.UpsertProfile)
		patients.GET("/me", h.Me)
		patients.GET("/:id", h.Get)
	}
}

// UpsertProfile creates or updates the patient profile for the
// signed-in account.
func (h *Handler) UpsertProfile(c *gin.Context) {
	session := identity.SessionFrom(c.Request.Context())
	if session == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("no session")))
		return
	}

	var req model.UpsertPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid patient payload", err))
		return
	}

	p, err := h.service.UpsertProfile(c.Request.Context(), session.UserID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Me(c *gin.Context) {
	p, err := h.resolver.CurrentPatient(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if p == nil {
		httputil.RespondWithError(c, apperrors.NotFound("patient profile", nil))
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid patient ID", err))
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
