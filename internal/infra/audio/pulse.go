package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"interview-bot/internal/domain"
)

const pulseFragmentBytes = 640 // 20ms @ 16kHz mono s16

// PulseDevice records from a PulseAudio/PipeWire source. An empty source
// selects the server default.
type PulseDevice struct {
	source string
}

func NewPulseDevice(source string) *PulseDevice {
	return &PulseDevice{source: source}
}

func (d *PulseDevice) Name() string {
	return "pulse"
}

func (d *PulseDevice) Open(ctx context.Context, format domain.AudioFormat) (Stream, error) {
	if format.Channels != 1 {
		return nil, fmt.Errorf("pulse backend records mono only, got %d channels", format.Channels)
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("interview-bot"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	var source *pulse.Source
	if d.source == "" || d.source == "default" {
		source, err = client.DefaultSource()
	} else {
		source, err = client.SourceByID(d.source)
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", d.source, err)
	}

	s := &pulseStream{
		client:  client,
		samples: make(chan []int16, 128),
		done:    make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(pulseFragmentBytes),
		pulse.RecordMediaName("interview question"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	s.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

type pulseStream struct {
	client *pulse.Client
	stream *pulse.RecordStream

	samples chan []int16
	done    chan struct{}

	mu      sync.Mutex
	odd     []byte
	pending []int16
	closed  bool
}

// onPCM converts raw little-endian frames and hands them to Read.
func (s *pulseStream) onPCM(buffer []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	data := append(s.odd, buffer...)
	usable := len(data) - len(data)%2
	s.odd = append([]byte(nil), data[usable:]...)
	s.mu.Unlock()

	if usable == 0 {
		return len(buffer), nil
	}

	chunk := make([]int16, usable/2)
	for i := range chunk {
		chunk[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	select {
	case <-s.done:
		return 0, io.EOF
	case s.samples <- chunk:
	}
	return len(buffer), nil
}

func (s *pulseStream) Read(buf []int16) (int, error) {
	if len(s.pending) == 0 {
		select {
		case <-s.done:
			return 0, io.EOF
		case chunk := <-s.samples:
			s.pending = chunk
		}
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *pulseStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	s.client.Close()
	return nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
