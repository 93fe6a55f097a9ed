package application

import (
	"context"

	"interview-bot/internal/domain"
)

// AudioCapture acquires one bounded audio sample for a single question.
type AudioCapture interface {
	Capture(ctx context.Context) (domain.AudioSample, error)
	Name() string
}
