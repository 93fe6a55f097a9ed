package application

import (
	"context"

	"interview-bot/internal/domain"
)

type Transcriber interface {
	Transcribe(ctx context.Context, sample domain.AudioSample) (domain.Transcript, error)
}

// SilenceGate rejects samples whose peak amplitude never crosses threshold
// without calling the recognizer, which tends to invent text for silence.
type SilenceGate struct {
	next      Transcriber
	threshold int
}

func NewSilenceGate(next Transcriber, threshold int) *SilenceGate {
	return &SilenceGate{next: next, threshold: threshold}
}

func (g *SilenceGate) Transcribe(ctx context.Context, sample domain.AudioSample) (domain.Transcript, error) {
	if g.threshold > 0 && sample.Peak() < g.threshold {
		return "", domain.Classify(domain.KindUnintelligible, "transcribing", domain.ErrUnintelligible)
	}
	return g.next.Transcribe(ctx, sample)
}
