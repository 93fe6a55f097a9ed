//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"interview-bot/internal/domain"
)

// PortAudioDevice records from the system default input through PortAudio.
type PortAudioDevice struct {
	logger *slog.Logger
}

func NewPortAudioDevice(logger *slog.Logger) *PortAudioDevice {
	return &PortAudioDevice{logger: logger}
}

func (d *PortAudioDevice) Name() string {
	return "portaudio"
}

func (d *PortAudioDevice) Open(ctx context.Context, format domain.AudioFormat) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer*format.Channels)

	stream, err := portaudio.OpenDefaultStream(
		format.Channels,
		0,
		float64(format.SampleRate),
		framesPerBuffer,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	d.logger.Info("microphone started", "backend", d.Name(), "sampleRate", format.SampleRate)

	s := &portAudioStream{stream: stream, buffer: buffer, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type portAudioStream struct {
	stream  *portaudio.Stream
	buffer  []int16
	pending []int16

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// Read may be unblocked by Close from another goroutine, in which case it
// reports io.EOF rather than the stream error.
func (s *portAudioStream) Read(buf []int16) (int, error) {
	if s.closed.Load() {
		return 0, io.EOF
	}
	if len(s.pending) == 0 {
		if err := s.stream.Read(); err != nil {
			if s.closed.Load() {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("reading from stream: %w", err)
		}
		s.pending = s.buffer
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.stream.Abort()
		s.stream.Close()
		portaudio.Terminate()
	})
	return nil
}
