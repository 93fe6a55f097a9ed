// Package audio implements the capture strategies and the microphone backends they read from.
package audio

import (
	"context"
	"errors"
	"time"

	"interview-bot/internal/domain"
)

const framesPerBuffer = 1024

// captureGrace is how long past its nominal length a recording may run
// before the stream is torn down.
const captureGrace = time.Second

var ErrDeviceStalled = errors.New("audio device stopped delivering samples")

// Device opens raw 16-bit PCM input streams.
type Device interface {
	Open(ctx context.Context, format domain.AudioFormat) (Stream, error)
	Name() string
}

// Stream delivers interleaved samples. Read blocks until at least one sample
// is available and returns io.EOF once the stream is closed.
type Stream interface {
	Read(buf []int16) (int, error)
	Close() error
}

func bufferPeak(buf []int16) int {
	peak := 0
	for _, s := range buf {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

func samplesPerSecond(format domain.AudioFormat) int {
	return format.SampleRate * format.Channels
}

// openWithDeadline opens device under a context that expires after limit.
// When that context ends the stream is closed, which unblocks a Read stuck
// on a device that stays open but delivers nothing. release must be called
// once the caller is done reading.
func openWithDeadline(ctx context.Context, device Device, format domain.AudioFormat, limit time.Duration) (Stream, context.Context, func(), error) {
	captureCtx, cancel := context.WithTimeout(ctx, limit)

	stream, err := device.Open(captureCtx, format)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-captureCtx.Done():
			stream.Close()
		case <-done:
		}
	}()

	release := func() {
		close(done)
		<-exited
		cancel()
		stream.Close()
	}
	return stream, captureCtx, release, nil
}

// stopReason tells a caller's cancellation apart from the capture deadline.
// It returns nil while both contexts are live.
func stopReason(parent, capture context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if capture.Err() != nil {
		return ErrDeviceStalled
	}
	return nil
}
