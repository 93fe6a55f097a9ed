package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interview-bot/internal/domain"
)

const (
	MinFixedDuration = time.Second
	MaxFixedDuration = time.Minute
)

// FixedDuration records exactly duration regardless of what is said.
type FixedDuration struct {
	device   Device
	format   domain.AudioFormat
	duration time.Duration
}

func NewFixedDuration(device Device, format domain.AudioFormat, duration time.Duration) (*FixedDuration, error) {
	if duration < MinFixedDuration || duration > MaxFixedDuration {
		return nil, fmt.Errorf("fixed duration %s outside [%s, %s]", duration, MinFixedDuration, MaxFixedDuration)
	}
	return &FixedDuration{
		device:   device,
		format:   format,
		duration: duration,
	}, nil
}

func (f *FixedDuration) Name() string {
	return "fixed"
}

func (f *FixedDuration) Capture(ctx context.Context) (domain.AudioSample, error) {
	stream, captureCtx, release, err := openWithDeadline(ctx, f.device, f.format, f.duration+captureGrace)
	if err != nil {
		return domain.AudioSample{}, fmt.Errorf("opening %s: %w", f.device.Name(), err)
	}
	defer release()

	total := int(f.duration.Seconds() * float64(samplesPerSecond(f.format)))
	total -= total % f.format.Channels

	samples := make([]int16, 0, total)
	buffer := make([]int16, framesPerBuffer*f.format.Channels)

	for len(samples) < total {
		if err := f.stopErr(ctx, captureCtx); err != nil {
			return domain.AudioSample{}, err
		}

		n, err := stream.Read(buffer)
		if err != nil {
			if err := f.stopErr(ctx, captureCtx); err != nil {
				return domain.AudioSample{}, err
			}
			return domain.AudioSample{}, fmt.Errorf("reading from %s: %w", f.device.Name(), err)
		}
		samples = append(samples, buffer[:n]...)
	}

	return domain.NewAudioSample(samples[:total], f.format), nil
}

// A fixed recording is all or nothing, so a stall is always an error.
func (f *FixedDuration) stopErr(parent, capture context.Context) error {
	reason := stopReason(parent, capture)
	if errors.Is(reason, ErrDeviceStalled) {
		return fmt.Errorf("%s: %w", f.device.Name(), reason)
	}
	return reason
}
