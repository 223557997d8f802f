// Package llm adapts the raw chatgpt client to the assistant's
// generation contract.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
	"github.com/yanqian/sales-assistant/internal/infra/llm/chatgpt"
	"github.com/yanqian/sales-assistant/pkg/metrics"
)

// ChatAdapter binds a model name to the OpenAI-compatible client.
type ChatAdapter struct {
	client *chatgpt.Client
	model  string
}

// NewChatAdapter constructs the adapter.
func NewChatAdapter(client *chatgpt.Client, model string) *ChatAdapter {
	return &ChatAdapter{client: client, model: model}
}

// Complete implements assistant.ChatClient.
func (a *ChatAdapter) Complete(ctx context.Context, system, user string, temperature float32) (string, metrics.TokenUsage, error) {
	resp, err := a.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model: a.model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", metrics.TokenUsage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", metrics.TokenUsage{}, errors.New("llm returned no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", metrics.TokenUsage{}, errors.New("llm response empty")
	}
	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return answer, usage, nil
}

var _ assistant.ChatClient = (*ChatAdapter)(nil)
