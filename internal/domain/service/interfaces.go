package service

import (
	"context"

	"wisetrade/internal/domain/models"
)

// LLM invokes a language model with a prompt and returns raw text.
type LLM interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Synthesizer turns collected pipeline state into a recommendation.
type Synthesizer interface {
	Synthesize(ctx context.Context, state *models.PipelineState) (*models.Advice, error)
	Name() string
}

// Notifier delivers finished advice to a destination (mail, event bus).
type Notifier interface {
	Notify(ctx context.Context, advice []*models.Advice) error
	Name() string
}
