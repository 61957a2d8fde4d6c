package model

// ChatRole is the acting role a chat conversation belongs to.
type ChatRole string

const (
	ChatRoleDoctor  ChatRole = "doctor"
	ChatRolePatient ChatRole = "patient"
	ChatRoleUser    ChatRole = "user"
)

// ValidChatRole reports whether r is a known chat role.
func ValidChatRole(r ChatRole) bool {
	switch r {
	case ChatRoleDoctor, ChatRolePatient, ChatRoleUser:
		return true
	}
	return false
}

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest is the body forwarded to the chat service.
type ChatRequest struct {
	Message string        `json:"message" binding:"required"`
	History []ChatMessage `json:"history"`
}

// ChatResponse is the chat service's reply shape, relayed verbatim.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatHealth is the chat service's health report.
type ChatHealth struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// ChatMemory is the doctor-side conversation memory summary.
type ChatMemory struct {
	Success bool   `json:"success"`
	Memory  string `json:"memory,omitempty"`
	Error   string `json:"error,omitempty"`
}
