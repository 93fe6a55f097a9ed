// Package gtts synthesizes speech with the Google Translate text-to-speech
// endpoint. No credentials are needed; the endpoint accepts short chunks only.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"interview-bot/internal/domain"
	"interview-bot/internal/infra"
)

const (
	defaultBaseURL = "https://translate.google.com"
	MaxChunkRunes  = 100
)

type Client struct {
	baseURL    string
	lang       string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(lang string) *Client {
	return NewClientWithURL(lang, defaultBaseURL)
}

func NewClientWithURL(lang, baseURL string) *Client {
	if lang == "" {
		lang = "en"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		lang:       lang,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) WithRetry(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}

// Synthesize fetches one MP3 segment per chunk and concatenates them.
// MP3 frames are self-delimiting, so the joined stream plays back in order.
func (c *Client) Synthesize(ctx context.Context, answer domain.Answer) (domain.SynthesizedAudio, error) {
	chunks := Split(string(answer), MaxChunkRunes)
	if len(chunks) == 0 {
		return domain.SynthesizedAudio{}, fmt.Errorf("text cannot be empty")
	}

	var out bytes.Buffer
	for i, chunk := range chunks {
		segment, err := c.fetch(ctx, chunk, i, len(chunks))
		if err != nil {
			return domain.SynthesizedAudio{}, fmt.Errorf("synthesizing chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out.Write(segment)
	}

	return domain.SynthesizedAudio{Data: out.Bytes(), MIMEType: "audio/mpeg"}, nil
}

func (c *Client) fetch(ctx context.Context, text string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", c.lang)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))
	endpoint := c.baseURL + "/translate_tts?" + q.Encode()

	var segment []byte
	err := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return infra.StatusError(fmt.Errorf("tts endpoint returned %d", resp.StatusCode), resp.StatusCode)
		}

		segment, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		if len(segment) == 0 {
			return infra.Permanent(fmt.Errorf("empty audio segment"))
		}
		return nil
	})
	return segment, err
}

// Split breaks text into chunks of at most limit runes, preferring word
// boundaries. Words longer than limit are cut.
func Split(text string, limit int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}

		need := len(w)
		if len(cur) > 0 {
			need++
		}
		if len(cur)+need > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()

	return chunks
}
