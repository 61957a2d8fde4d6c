package video

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/service/video"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/httputil"
)

// maxUploadBytes caps a single video upload.
const maxUploadBytes = 512 << 20

type Handler struct {
	service  *video.Service
	resolver *identity.Resolver
}

func NewHandler(service *video.Service, resolver *identity.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	{
		videos.POST("", h.Create)
		videos.DELETE("/:id", h.Delete)
	}
	r.GET("/doctor/videos", h.ListForDoctor)
	r.GET("/user/videos", h.ListForUser)
}

// Create accepts a multipart form with video metadata plus either an
// external URL field or an uploaded file part.
func (h *Handler) Create(c *gin.Context) {
	doctor, err := h.currentDoctor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req := model.CreateVideoRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
	}
	if url := c.PostForm("video_url"); url != "" {
		req.VideoURL = &url
	}
	if req.Title == "" || req.Category == "" {
		httputil.RespondWithError(c, apperrors.BadRequest("title and category are required", nil))
		return
	}

	var file io.Reader
	var filename string
	if header, err := c.FormFile("file"); err == nil {
		if header.Size > maxUploadBytes {
			httputil.RespondWithError(c, apperrors.BadRequest("file too large", nil))
			return
		}
		f, err := header.Open()
		if err != nil {
			httputil.RespondWithError(c, apperrors.Internal(err))
			return
		}
		defer f.Close()
		file = f
		filename = header.Filename
	}

	v, err := h.service.Create(c.Request.Context(), doctor.ID, &req, file, filename)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, v)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid video ID", err))
		return
	}

	doctor, err := h.currentDoctor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, doctor.ID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	doctor, err := h.currentDoctor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	videos, err := h.service.ListForDoctor(c.Request.Context(), doctor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, videos)
}

// ListForUser lists videos uploaded by the doctors currently treating
// the signed-in account's patients.
func (h *Handler) ListForUser(c *gin.Context) {
	session := identity.SessionFrom(c.Request.Context())
	if session == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("no session")))
		return
	}

	videos, err := h.service.ListForUser(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, videos)
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
