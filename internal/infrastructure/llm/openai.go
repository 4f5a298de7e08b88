package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"PaperFeed/internal/ports"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// openAIClient talks to OpenAI or any API that speaks the chat/completions dialect.
type openAIClient struct {
	client *openai.Client
}

func newOpenAIClient(apiKey, baseURL string) *openAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if base := normalizeBaseURL(baseURL); base != "" {
		cfg.BaseURL = base
	}
	return &openAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *openAIClient) complete(ctx context.Context, model string, req ports.ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) close() error {
	return nil
}

// normalizeBaseURL accepts either the API root or a full chat/completions endpoint.
func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base
}
