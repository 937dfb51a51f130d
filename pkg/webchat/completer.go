package webchat

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Completer produces the assistant reply for a conversation whose first
// message is the system prompt and whose last message is the newest user turn.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func NewOpenAICompleter(client *openai.Client, model string, temperature float32) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: model, temperature: temperature}
}

func (c *OpenAICompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// EchoCompleter answers with the newest user message. It is used when no
// model credentials are configured.
type EchoCompleter struct{}

func (EchoCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return "echo: " + strings.TrimSpace(messages[i].Content), nil
		}
	}
	return "", errors.New("no user message to echo")
}
