//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"interview-bot/internal/domain"
)

// PortAudioDevice stub when portaudio is not available
type PortAudioDevice struct {
	logger *slog.Logger
}

func NewPortAudioDevice(logger *slog.Logger) *PortAudioDevice {
	return &PortAudioDevice{logger: logger}
}

func (d *PortAudioDevice) Name() string {
	return "portaudio"
}

func (d *PortAudioDevice) Open(_ context.Context, _ domain.AudioFormat) (Stream, error) {
	return nil, fmt.Errorf("portaudio backend not available: rebuild with -tags portaudio or use the pulse backend")
}
