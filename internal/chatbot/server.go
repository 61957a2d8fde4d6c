package chatbot

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careloop/portal-api/internal/model"
)

// Server exposes the bot over the HTTP surface the portal proxies to.
type Server struct {
	bot *Bot
}

func NewServer(bot *Bot) *Server {
	return &Server{bot: bot}
}

// RegisterRoutes wires the chat endpoints onto r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/doctor/chat", s.chat(model.ChatRoleDoctor))
		api.POST("/patient/chat", s.chat(model.ChatRolePatient))
		api.POST("/user/chat", s.chat(model.ChatRoleUser))
		api.GET("/doctor/memory", s.memory)
		api.POST("/doctor/clear-memory", s.clearMemory)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, model.ChatHealth{Status: "healthy", Service: "chatbot"})
}

func (s *Server) chat(role model.ChatRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, model.ChatResponse{Success: false, Error: "message is required"})
			return
		}

		resp, err := s.bot.Chat(c.Request.Context(), role, &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.ChatResponse{Success: false, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) memory(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.Memory())
}

func (s *Server) clearMemory(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.ClearMemory())
}
