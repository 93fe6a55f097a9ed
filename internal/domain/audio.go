package domain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var ErrUnsupportedAudio = errors.New("unsupported audio encoding")

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

func (f AudioFormat) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupportedAudio, f.BitDepth)
	}
	return nil
}

func (f AudioFormat) frameSize() int {
	return f.Channels * f.BitDepth / 8
}

// AudioSample is one captured question as little-endian PCM.
type AudioSample struct {
	PCM    []byte
	Format AudioFormat
}

func NewAudioSample(samples []int16, format AudioFormat) AudioSample {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return AudioSample{PCM: pcm, Format: format}
}

func (s AudioSample) Frames() int {
	size := s.Format.frameSize()
	if size == 0 {
		return 0
	}
	return len(s.PCM) / size
}

func (s AudioSample) Duration() time.Duration {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(s.Frames()) * time.Second / time.Duration(s.Format.SampleRate)
}

// Peak returns the largest absolute 16-bit amplitude in the sample.
func (s AudioSample) Peak() int {
	peak := 0
	for i := 0; i+1 < len(s.PCM); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(s.PCM[i:])))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// WAV encodes the sample as a canonical 44-byte-header RIFF file.
func (s AudioSample) WAV() []byte {
	var buf bytes.Buffer

	dataSize := len(s.PCM)
	blockAlign := s.Format.frameSize()

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(s.Format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(s.Format.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(s.Format.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(s.Format.BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(s.PCM)

	return buf.Bytes()
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads a RIFF/WAVE buffer holding 16-bit integer PCM.
func DecodeWAV(data []byte) (AudioSample, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return AudioSample{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedAudio)
	}

	var (
		format  AudioFormat
		haveFmt bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(data) {
			// Streaming recorders leave the data size unset; take what is there.
			if id == "data" {
				end = len(data)
			} else {
				return AudioSample{}, fmt.Errorf("%w: truncated %q chunk", ErrUnsupportedAudio, id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return AudioSample{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedAudio)
			}
			tag := binary.LittleEndian.Uint16(data[body:])
			if tag != wavFormatPCM && tag != wavFormatExtensible {
				return AudioSample{}, fmt.Errorf("%w: format tag %#x", ErrUnsupportedAudio, tag)
			}
			format = AudioFormat{
				Channels:   int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4:])),
				BitDepth:   int(binary.LittleEndian.Uint16(data[body+14:])),
			}
			if err := format.Validate(); err != nil {
				return AudioSample{}, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return AudioSample{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedAudio)
			}
			pcm := make([]byte, end-body)
			copy(pcm, data[body:end])
			if odd := len(pcm) % format.frameSize(); odd != 0 {
				pcm = pcm[:len(pcm)-odd]
			}
			return AudioSample{PCM: pcm, Format: format}, nil
		}

		pos = end + size%2
	}

	return AudioSample{}, fmt.Errorf("%w: missing data chunk", ErrUnsupportedAudio)
}
