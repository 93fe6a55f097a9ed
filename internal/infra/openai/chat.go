package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"interview-bot/internal/domain"
	"interview-bot/internal/infra"
)

const DefaultChatModel = "gpt-4"

// ChatClient completes prompts with the chat completions endpoint.
type ChatClient struct {
	apiKey string
	model  string
	settings
}

func NewChatClient(apiKey, model string, opts ...Option) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatClient{
		apiKey:   apiKey,
		model:    model,
		settings: newSettings(opts),
	}
}

func (c *ChatClient) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}

	var result chatResponse
	if err := infra.PostJSON(ctx, c.httpClient, c.retry, c.baseURL+"/chat/completions", header, req, &result); err != nil {
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) {
			return "", apiErrorf("openai", httpErr.StatusCode, httpErr.Body)
		}
		return "", fmt.Errorf("openai chat: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}

	return result.Choices[0].Message.Content, nil
}
