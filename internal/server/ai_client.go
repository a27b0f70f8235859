package server

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"healthguide/internal/config"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// ModelClient is the Model Provider port. Implementations fail with a
// transport or timeout error on unavailability; recovery is the gateway's
// job, never the client's.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt string, messages []ChatTurn, opts CompletionOptions) (string, error)
}

// OpenAIClient backs ModelClient with the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg config.Config) *OpenAIClient {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.OpenAIAPIKey))
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (c *OpenAIClient) Complete(
	ctx context.Context,
	systemPrompt string,
	messages []ChatTurn,
	opts CompletionOptions,
) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	if strings.TrimSpace(systemPrompt) != "" {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range messages {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: content,
		})
	}
	if len(request.Messages) == 0 {
		return "", errors.New("model request has no messages")
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", errors.New("model response has no choices")
	}
	answer := strings.TrimSpace(response.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("model response is empty")
	}
	return answer, nil
}

// MockModelClient returns canned answers for tests and local runs without a
// credential.
type MockModelClient struct {
	Answer string
	Err    error
	Calls  int
}

func (m *MockModelClient) Complete(_ context.Context, _ string, messages []ChatTurn, _ CompletionOptions) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if strings.TrimSpace(m.Answer) != "" {
		return m.Answer, nil
	}

	question := ""
	for idx := len(messages) - 1; idx >= 0; idx-- {
		if strings.EqualFold(strings.TrimSpace(messages[idx].Role), "user") {
			question = strings.TrimSpace(messages[idx].Content)
			break
		}
	}
	if question == "" {
		question = "No question provided."
	}
	return "Mock response: " + question, nil
}
