package domain

import "strings"

type ContextSource string

const (
	SourceFile    ContextSource = "file"
	SourceSession ContextSource = "session"
)

// BackgroundContext is the candidate's resume text used to ground answers.
type BackgroundContext struct {
	Text   string
	Source ContextSource
}

type Transcript string

func (t Transcript) Empty() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Prompt is the system/user message pair sent to the language model.
type Prompt struct {
	System string
	User   string
}

type Answer string

func (a Answer) Empty() bool {
	return strings.TrimSpace(string(a)) == ""
}

type SynthesizedAudio struct {
	Data     []byte
	MIMEType string
}

func (a SynthesizedAudio) Empty() bool {
	return len(a.Data) == 0
}

// Extension returns the file extension players expect for the encoded audio.
func (a SynthesizedAudio) Extension() string {
	switch a.MIMEType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/aac":
		return ".aac"
	case "audio/flac":
		return ".flac"
	default:
		return ".mp3"
	}
}
