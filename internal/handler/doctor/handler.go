package doctor

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/service/doctor"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/httputil"
)

// demoCodeTTL bounds how long a remembered doctor code stays usable.
const demoCodeTTL = 24 * time.Hour

type Handler struct {
	service  *doctor.Service
	resolver *identity.Resolver
}

func NewHandler(service *doctor.Service, resolver *identity.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", h.Create)
		doctors.GET("", h.List)
		doctors.GET("/:id", h.Get)
	}
	r.POST("/doctor/code", h.RememberCode)
	r.DELETE("/doctor/code", h.ForgetCode)
	r.GET("/doctor/me", h.Me)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor payload", err))
		return
	}

	doc, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, doc)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor ID", err))
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) List(c *gin.Context) {
	doctors, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

// RememberCode stores a demo doctor code so later requests resolve the
// acting doctor from it without a session.
func (h *Handler) RememberCode(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("code is required", err))
		return
	}

	if err := h.resolver.RememberDoctorCode(c.Request.Context(), req.Code, demoCodeTTL); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"code": req.Code})
}

func (h *Handler) ForgetCode(c *gin.Context) {
	h.resolver.Forget(c.Request.Context())
	httputil.RespondWithSuccess(c, nil)
}

// Me resolves the acting doctor through the provider chain.
func (h *Handler) Me(c *gin.Context) {
	doc, err := h.resolver.CurrentDoctor(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if doc == nil {
		httputil.RespondWithError(c, apperrors.NotFound("doctor identity", nil))
		return
	}
	httputil.RespondWithSuccess(c, doc)
}
