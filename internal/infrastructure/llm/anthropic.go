package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"PaperFeed/internal/ports"
)

const anthropicDefaultMaxTokens = 500

type anthropicClient struct {
	client *anthropic.Client
}

func newAnthropicClient(apiKey, baseURL string) *anthropicClient {
	var opts []anthropic.ClientOption
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		opts = append(opts, anthropic.WithBaseURL(base))
	}
	return &anthropicClient{client: anthropic.NewClient(apiKey, opts...)}
}

func (c *anthropicClient) complete(ctx context.Context, model string, req ports.ChatRequest) (string, error) {
	var (
		system   []string
		messages []anthropic.Message
	)
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		default:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	temperature := req.Temperature

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      strings.Join(system, "\n\n"),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, part := range resp.Content {
		if part.Text != nil {
			out.WriteString(*part.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response content")
	}
	return out.String(), nil
}

func (c *anthropicClient) close() error {
	return nil
}
