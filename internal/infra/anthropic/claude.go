// Package anthropic answers prompts with the Claude messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"interview-bot/internal/domain"
	"interview-bot/internal/infra"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
)

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	retry      infra.RetryConfig
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, defaultBaseURL)
}

func NewClaudeClientWithURL(apiKey, model, baseURL string) *ClaudeClient {
	if model == "" {
		model = DefaultModel
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		maxTokens:  512,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *ClaudeClient) WithRetry(cfg infra.RetryConfig) *ClaudeClient {
	c.retry = cfg
	return c
}

func (c *ClaudeClient) Name() string {
	return "claude"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// Complete sends the persona as the system prompt and the question as the
// only user turn. Text blocks are concatenated in order.
func (c *ClaudeClient) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", apiVersion)

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    prompt.System,
		Messages:  []message{{Role: "user", Content: prompt.User}},
	}

	var resp messagesResponse
	if err := infra.PostJSON(ctx, c.httpClient, c.retry, c.baseURL+"/messages", header, req, &resp); err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude returned no text (stop_reason %q)", resp.StopReason)
	}
	return text.String(), nil
}
