package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"interview-bot/internal/domain"
	"interview-bot/internal/infra"
)

const (
	DefaultSpeechModel = "tts-1"
	DefaultVoice       = "alloy"
)

// SpeechClient renders answers as MP3 with the /audio/speech endpoint.
type SpeechClient struct {
	apiKey string
	model  string
	voice  string
	settings
}

func NewSpeechClient(apiKey, model, voice string, opts ...Option) *SpeechClient {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &SpeechClient{
		apiKey:   apiKey,
		model:    model,
		voice:    voice,
		settings: newSettings(opts),
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *SpeechClient) Synthesize(ctx context.Context, answer domain.Answer) (domain.SynthesizedAudio, error) {
	if answer.Empty() {
		return domain.SynthesizedAudio{}, fmt.Errorf("text cannot be empty")
	}

	bodyBytes, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          string(answer),
		Voice:          c.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("marshaling request: %w", err)
	}

	var audio []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return responseError("openai speech", resp)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		return nil
	})

	if retryErr != nil {
		return domain.SynthesizedAudio{}, retryErr
	}

	if len(audio) == 0 {
		return domain.SynthesizedAudio{}, fmt.Errorf("empty audio from openai speech")
	}

	return domain.SynthesizedAudio{Data: audio, MIMEType: "audio/mpeg"}, nil
}
