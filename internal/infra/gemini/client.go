// Package gemini answers prompts with the Gemini generateContent API.
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	retry      infra.RetryConfig
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, defaultBaseURL)
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) WithRetry(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}

func (c *Client) Name() string {
	return "gemini"
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (c *Client) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	header := http.Header{}
	header.Set("x-goog-api-key", c.apiKey)

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: prompt.System}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt.User}}}},
		GenerationConfig:  generationConfig{MaxOutputTokens: 512, Temperature: 0.7},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var resp generateResponse
	if err := infra.PostJSON(ctx, c.httpClient, c.retry, url, header, req, &resp); err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text (finish reason %q)", resp.Candidates[0].FinishReason)
	}
	return text.String(), nil
}
