package audio

import (
	"context"
	"errors"
	"fmt"

	"interview-bot/internal/domain"
)

// Upload wraps audio recorded elsewhere. Decoding is deferred to Capture so
// a bad file surfaces as a capture failure of the invocation.
type Upload struct {
	label string
	data  []byte
}

func NewUpload(data []byte) *Upload {
	return &Upload{label: "upload", data: data}
}

func NewNamedUpload(label string, data []byte) *Upload {
	return &Upload{label: label, data: data}
}

func (u *Upload) Name() string {
	return u.label
}

func (u *Upload) Capture(_ context.Context) (domain.AudioSample, error) {
	if len(u.data) == 0 {
		return domain.AudioSample{}, errors.New("empty upload")
	}
	sample, err := domain.DecodeWAV(u.data)
	if err != nil {
		return domain.AudioSample{}, fmt.Errorf("decoding upload: %w", err)
	}
	return sample, nil
}
