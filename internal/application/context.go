package application

import (
	"context"

	"interview-bot/internal/domain"
)

type ContextProvider interface {
	Load(ctx context.Context) (domain.BackgroundContext, error)
}

// SessionContext prefers a value saved during the session over the fallback.
// A saved empty string is still returned as is.
type SessionContext struct {
	Override *string
	Fallback ContextProvider
}

func (s SessionContext) Load(ctx context.Context) (domain.BackgroundContext, error) {
	if s.Override != nil {
		return domain.BackgroundContext{Text: *s.Override, Source: domain.SourceSession}, nil
	}
	if s.Fallback == nil {
		return domain.BackgroundContext{}, domain.Classify(domain.KindContextRead, "loading context", domain.ErrContextNotFound)
	}
	return s.Fallback.Load(ctx)
}
