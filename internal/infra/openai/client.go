// Package openai talks to the OpenAI REST API for transcription, chat
// completions and speech synthesis.
package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"interview-bot/internal/infra"
)

const defaultBaseURL = "https://api.openai.com/v1"

type settings struct {
	baseURL    string
	httpClient *http.Client
	retry      infra.RetryConfig
}

type Option func(*settings)

// WithBaseURL points the client at a proxy or an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		if url != "" {
			s.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

func WithRetry(cfg infra.RetryConfig) Option {
	return func(s *settings) {
		s.retry = cfg
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// responseError turns a non-200 response into an error WithRetry understands.
func responseError(api string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return infra.StatusError(apiErrorf(api, resp.StatusCode, body), resp.StatusCode)
}

// apiErrorf prefers the message from OpenAI's error envelope over the raw body.
func apiErrorf(api string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	return fmt.Errorf("%s API error %d: %s", api, status, msg)
}
