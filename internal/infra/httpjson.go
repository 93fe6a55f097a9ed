package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 4096

// HTTPError is a non-200 response. Body holds at most maxErrorBody bytes.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// PostJSON marshals body, posts it to url and decodes a 200 response into
// out. Failures are classified for WithRetry: transport errors and
// retryable statuses are retried up to cfg.MaxAttempts, anything else is
// returned at once.
func PostJSON(ctx context.Context, client *http.Client, cfg RetryConfig, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	return WithRetry(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return Permanent(fmt.Errorf("creating request: %w", err))
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return StatusError(&HTTPError{StatusCode: resp.StatusCode, Body: body}, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
}
