package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-bot/internal/domain"
)

func TestClassify_KeepsFirstKind(t *testing.T) {
	inner := domain.Classify(domain.KindUnintelligible, "transcribe", domain.ErrUnintelligible)
	outer := domain.Classify(domain.KindRecognitionService, "pipeline", fmt.Errorf("wrapped: %w", inner))

	require.Equal(t, domain.KindUnintelligible, domain.KindOf(outer))
	require.ErrorIs(t, outer, domain.ErrUnintelligible)
}

func TestClassify_Nil(t *testing.T) {
	require.NoError(t, domain.Classify(domain.KindCapture, "capture", nil))
}

func TestUserMessage_DistinctPerKind(t *testing.T) {
	kinds := []domain.ErrorKind{
		domain.KindContextRead,
		domain.KindCapture,
		domain.KindUnintelligible,
		domain.KindRecognitionService,
		domain.KindGenerationService,
		domain.KindSynthesisService,
	}

	seen := map[string]domain.ErrorKind{}
	for _, kind := range kinds {
		msg := domain.UserMessage(domain.Classify(kind, "op", errors.New("boom")))
		if prev, ok := seen[msg]; ok {
			t.Fatalf("kinds %s and %s share message %q", prev, kind, msg)
		}
		seen[msg] = kind
	}

	notFound := domain.Classify(domain.KindContextRead, "load", domain.ErrContextNotFound)
	assert.Contains(t, domain.UserMessage(notFound), "not found")
	assert.Empty(t, domain.UserMessage(nil))
}
