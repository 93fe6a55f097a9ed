package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"interview-bot/internal/domain"
)

type SilenceOptions struct {
	Format         domain.AudioFormat
	PauseThreshold time.Duration
	MaxDuration    time.Duration
	SilenceLevel   int
}

func DefaultSilenceOptions() SilenceOptions {
	return SilenceOptions{
		Format:         domain.DefaultAudioFormat(),
		PauseThreshold: 2 * time.Second,
		MaxDuration:    30 * time.Second,
		SilenceLevel:   500,
	}
}

// SilenceTerminated records until the speaker pauses for PauseThreshold.
// MaxDuration bounds the recording even if the room never goes quiet.
type SilenceTerminated struct {
	device Device
	opts   SilenceOptions
	logger *slog.Logger
}

func NewSilenceTerminated(device Device, opts SilenceOptions, logger *slog.Logger) *SilenceTerminated {
	return &SilenceTerminated{
		device: device,
		opts:   opts,
		logger: logger,
	}
}

func (s *SilenceTerminated) Name() string {
	return "silence"
}

func (s *SilenceTerminated) Capture(ctx context.Context) (domain.AudioSample, error) {
	stream, captureCtx, release, err := openWithDeadline(ctx, s.device, s.opts.Format, s.opts.MaxDuration+captureGrace)
	if err != nil {
		return domain.AudioSample{}, fmt.Errorf("opening %s: %w", s.device.Name(), err)
	}
	defer release()

	perSecond := samplesPerSecond(s.opts.Format)
	maxSamples := int(s.opts.MaxDuration.Seconds() * float64(perSecond))
	pauseSamples := int(s.opts.PauseThreshold.Seconds() * float64(perSecond))

	samples := make([]int16, 0, perSecond*5)
	buffer := make([]int16, framesPerBuffer*s.opts.Format.Channels)
	heard := false
	trailing := 0

	s.logger.Info("listening", "pause_threshold", s.opts.PauseThreshold, "max_duration", s.opts.MaxDuration)

	for {
		if reason := stopReason(ctx, captureCtx); reason != nil {
			return s.stopped(samples, reason)
		}

		n, err := stream.Read(buffer)
		if err != nil {
			if reason := stopReason(ctx, captureCtx); reason != nil {
				return s.stopped(samples, reason)
			}
			return domain.AudioSample{}, fmt.Errorf("reading from %s: %w", s.device.Name(), err)
		}
		chunk := buffer[:n]
		samples = append(samples, chunk...)

		if bufferPeak(chunk) >= s.opts.SilenceLevel {
			heard = true
			trailing = 0
		} else {
			trailing += n
		}

		if heard && trailing >= pauseSamples {
			break
		}

		if len(samples) >= maxSamples {
			samples = samples[:maxSamples]
			s.logger.Warn("recording hit max duration", "max_duration", s.opts.MaxDuration, "speech_heard", heard)
			break
		}
	}

	return domain.NewAudioSample(samples, s.opts.Format), nil
}

// stopped keeps what was recorded when the device stalls past the cap.
// Caller cancellation always discards the recording.
func (s *SilenceTerminated) stopped(samples []int16, reason error) (domain.AudioSample, error) {
	if !errors.Is(reason, ErrDeviceStalled) {
		return domain.AudioSample{}, reason
	}
	if len(samples) == 0 {
		return domain.AudioSample{}, fmt.Errorf("%s: %w", s.device.Name(), reason)
	}
	s.logger.Warn("device stalled, keeping partial recording",
		"device", s.device.Name(),
		"max_duration", s.opts.MaxDuration,
		"samples", len(samples),
	)
	return domain.NewAudioSample(samples, s.opts.Format), nil
}
