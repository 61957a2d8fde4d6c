package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/portal-api/internal/model"
)

type stubCompleter struct {
	reply    string
	err      error
	requests []openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply}},
		},
	}, nil
}

func newTestBot(stub *stubCompleter) *Bot {
	logger := zerolog.Nop()
	return New(stub, "", &logger)
}

func TestChatBuildsRoleSpecificPrompt(t *testing.T) {
	stub := &stubCompleter{reply: "take rest and fluids"}
	bot := newTestBot(stub)

	resp, err := bot.Chat(context.Background(), model.ChatRolePatient, &model.ChatRequest{
		Message: "I have a sore throat",
		History: []model.ChatMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello, how can I help?"},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "take rest and fluids", resp.Response)

	require.Len(t, stub.requests, 1)
	msgs := stub.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "health companion")
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "I have a sore throat", msgs[3].Content)
}

func TestChatUnknownRole(t *testing.T) {
	bot := newTestBot(&stubCompleter{reply: "x"})
	_, err := bot.Chat(context.Background(), model.ChatRole("admin"), &model.ChatRequest{Message: "hi"})
	require.Error(t, err)
}

func TestChatSurfacesCompletionFailure(t *testing.T) {
	bot := newTestBot(&stubCompleter{err: errors.New("rate limited")})
	_, err := bot.Chat(context.Background(), model.ChatRoleUser, &model.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestDoctorMemoryAccumulatesAndClears(t *testing.T) {
	stub := &stubCompleter{reply: "noted"}
	bot := newTestBot(stub)

	_, err := bot.Chat(context.Background(), model.ChatRoleDoctor, &model.ChatRequest{Message: "patient reports dizziness"})
	require.NoError(t, err)
	_, err = bot.Chat(context.Background(), model.ChatRoleDoctor, &model.ChatRequest{Message: "bp is 150/95"})
	require.NoError(t, err)

	memory := bot.Memory()
	assert.True(t, memory.Success)
	assert.Contains(t, memory.Memory, "dizziness")
	assert.Contains(t, memory.Memory, "150/95")

	// The second doctor request should replay the first message as memory.
	require.Len(t, stub.requests, 2)
	second := stub.requests[1].Messages
	assert.Contains(t, second[1].Content, "dizziness")

	resp := bot.ClearMemory()
	assert.True(t, resp.Success)
	assert.Empty(t, bot.Memory().Memory)
}

func TestPatientChatsDoNotTouchDoctorMemory(t *testing.T) {
	bot := newTestBot(&stubCompleter{reply: "ok"})
	_, err := bot.Chat(context.Background(), model.ChatRolePatient, &model.ChatRequest{Message: "my knee hurts"})
	require.NoError(t, err)
	assert.Empty(t, bot.Memory().Memory)
}
