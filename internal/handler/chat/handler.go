package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/service/chat"
)

// Handler relays chat traffic between the UI and the chat service. The
// response body shape is the chat service's own, passed through
// unwrapped so the UI contract matches the service directly.
type Handler struct {
	proxy *chat.Proxy
}

func NewHandler(proxy *chat.Proxy) *Handler {
	return &Handler{proxy: proxy}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/chat/health", h.Health)
	r.POST("/doctor/chat", h.Chat(model.ChatRoleDoctor))
	r.POST("/patient/chat", h.Chat(model.ChatRolePatient))
	r.POST("/user/chat", h.Chat(model.ChatRoleUser))
	r.GET("/doctor/chat/memory", h.Memory)
	r.POST("/doctor/chat/clear-memory", h.ClearMemory)
}

func (h *Handler) Chat(role model.ChatRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, model.ChatResponse{Success: false, Error: "message is required"})
			return
		}

		resp, err := h.proxy.Send(c.Request.Context(), role, &req)
		if err != nil {
			c.JSON(http.StatusBadGateway, model.ChatResponse{Success: false, Error: "chat service unavailable"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) Health(c *gin.Context) {
	health, err := h.proxy.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, model.ChatHealth{Status: "unreachable"})
		return
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) Memory(c *gin.Context) {
	memory, err := h.proxy.DoctorMemory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, model.ChatMemory{Success: false, Error: "chat service unavailable"})
		return
	}
	c.JSON(http.StatusOK, memory)
}

func (h *Handler) ClearMemory(c *gin.Context) {
	resp, err := h.proxy.ClearDoctorMemory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, model.ChatResponse{Success: false, Error: "chat service unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
