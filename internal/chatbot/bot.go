// Package chatbot implements the standalone chat service the portal
// proxies to. Each acting role gets its own system prompt; the doctor
// role additionally keeps a rolling in-memory summary of what patients
// have told it, which doctors can inspect and clear.
package chatbot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/careloop/portal-api/internal/model"
)

const (
	doctorPrompt = `You are a clinical assistant for doctors at a healthcare portal.
Answer concisely and professionally. Summarize patient-reported symptoms,
suggest differential considerations, and always remind the doctor that
final decisions are theirs. Never prescribe medication yourself.`

	patientPrompt = `You are a friendly health companion for patients of a healthcare
portal. Explain things in plain language, encourage patients to book an
appointment for anything concerning, and never give a diagnosis.`

	userPrompt = `You are a helpful assistant for caregivers using a healthcare
portal on behalf of family members. Help them navigate appointments and
videos, and explain medical terms simply.`

	// maxHistoryTurns bounds how much history is replayed to the model.
	maxHistoryTurns = 20
)

// Completer is the slice of the OpenAI client the bot uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Bot answers chat requests for all three roles.
type Bot struct {
	client Completer
	model  string
	logger *zerolog.Logger

	mu     sync.Mutex
	memory []string
}

func New(client Completer, modelName string, logger *zerolog.Logger) *Bot {
	if modelName == "" {
		modelName = openai.GPT3Dot5Turbo
	}
	return &Bot{
		client: client,
		model:  modelName,
		logger: logger,
	}
}

// Chat produces a reply for one message plus history under the given
// role's system prompt. Doctor conversations are folded into the
// rolling memory after a successful reply.
func (b *Bot) Chat(ctx context.Context, role model.ChatRole, req *model.ChatRequest) (*model.ChatResponse, error) {
	prompt, err := systemPrompt(role)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt},
	}
	if role == model.ChatRoleDoctor {
		if memo := b.memorySnapshot(); memo != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Earlier context from this doctor's sessions:\n" + memo,
			})
		}
	}

	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    completionRole(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	})
	if err != nil {
		b.logger.Error().Err(err).Str("role", string(role)).Msg("completion failed")
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	if role == model.ChatRoleDoctor {
		b.remember(req.Message)
	}
	return &model.ChatResponse{Success: true, Response: answer}, nil
}

// Memory returns the doctor memory as one newline-joined summary.
func (b *Bot) Memory() *model.ChatMemory {
	return &model.ChatMemory{Success: true, Memory: b.memorySnapshot()}
}

// ClearMemory discards the doctor memory.
func (b *Bot) ClearMemory() *model.ChatResponse {
	b.mu.Lock()
	b.memory = nil
	b.mu.Unlock()
	return &model.ChatResponse{Success: true, Response: "memory cleared"}
}

func (b *Bot) remember(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memory = append(b.memory, message)
	// Keep the memory bounded so prompts stay small.
	if len(b.memory) > maxHistoryTurns {
		b.memory = b.memory[len(b.memory)-maxHistoryTurns:]
	}
}

func (b *Bot) memorySnapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.memory, "\n")
}

func systemPrompt(role model.ChatRole) (string, error) {
	switch role {
	case model.ChatRoleDoctor:
		return doctorPrompt, nil
	case model.ChatRolePatient:
		return patientPrompt, nil
	case model.ChatRoleUser:
		return userPrompt, nil
	}
	return "", fmt.Errorf("unknown chat role %q", role)
}

func completionRole(role string) string {
	switch role {
	case "assistant", "bot":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
