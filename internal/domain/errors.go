package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindContextRead        ErrorKind = "context_read"
	KindCapture            ErrorKind = "capture"
	KindUnintelligible     ErrorKind = "unintelligible"
	KindRecognitionService ErrorKind = "recognition_service"
	KindGenerationService  ErrorKind = "generation_service"
	KindSynthesisService   ErrorKind = "synthesis_service"
)

var (
	ErrContextNotFound = errors.New("background context not found")
	ErrContextEmpty    = errors.New("background context is empty")
	ErrUnintelligible  = errors.New("speech could not be recognized")
	ErrEmptyAnswer     = errors.New("empty answer from language model")
	ErrBusy            = errors.New("an invocation is already running")
)

// Error is a pipeline failure tagged with the stage that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify tags err with kind unless it already carries a classification.
func Classify(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// UserMessage renders err for display; each kind tells the user whether to retry or rephrase.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindContextRead:
		if errors.Is(err, ErrContextNotFound) {
			return "Background file not found. Save your background text or create the context file."
		}
		if errors.Is(err, ErrContextEmpty) {
			return "Background file is empty. Add your background text to it or save it for this session."
		}
		return "Could not read the background context."
	case KindCapture:
		return "Could not capture audio. Check the microphone or the uploaded file."
	case KindUnintelligible:
		return "Could not understand your speech. Please rephrase and try again."
	case KindRecognitionService:
		return "Speech recognition service error. Please try again."
	case KindGenerationService:
		return "Could not generate an answer. Please try again."
	case KindSynthesisService:
		return "Text-to-speech failed; the answer text is still available."
	}
	if errors.Is(err, ErrBusy) {
		return "A question is already being answered. Wait for it to finish."
	}
	return "Unexpected error."
}
