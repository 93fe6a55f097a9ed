package application

import (
	"context"
	"strings"

	"interview-bot/internal/domain"
)

// LanguageModel sends a prompt to a remote model and returns its raw text.
type LanguageModel interface {
	Complete(ctx context.Context, prompt domain.Prompt) (string, error)
	Name() string
}

type AnswerGenerator interface {
	Generate(ctx context.Context, question domain.Transcript, bg domain.BackgroundContext) (domain.Answer, error)
}

type Generator struct {
	model         LanguageModel
	maxBackground int
}

// NewGenerator builds an AnswerGenerator. maxBackgroundChars caps the number of
// background runes placed in the prompt; zero keeps the whole text.
func NewGenerator(model LanguageModel, maxBackgroundChars int) *Generator {
	return &Generator{model: model, maxBackground: maxBackgroundChars}
}

func (g *Generator) Generate(ctx context.Context, question domain.Transcript, bg domain.BackgroundContext) (domain.Answer, error) {
	bg.Text = truncateRunes(bg.Text, g.maxBackground)
	prompt := BuildPrompt(bg, question)

	text, err := g.model.Complete(ctx, prompt)
	if err != nil {
		return "", domain.Classify(domain.KindGenerationService, g.model.Name()+" completion", err)
	}

	answer := domain.Answer(strings.TrimSpace(text))
	if answer.Empty() {
		return "", domain.Classify(domain.KindGenerationService, g.model.Name()+" completion", domain.ErrEmptyAnswer)
	}
	return answer, nil
}
