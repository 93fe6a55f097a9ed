package application

import (
	"context"

	"interview-bot/internal/domain"
)

// Speaker renders an answer as encoded audio. Playback is the caller's job.
type Speaker interface {
	Synthesize(ctx context.Context, answer domain.Answer) (domain.SynthesizedAudio, error)
}
