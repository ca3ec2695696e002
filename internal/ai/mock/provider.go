// Package mock provides a canned summarization provider for development
// and tests.
package mock

import (
	"context"
	"log/slog"

	"github.com/fiscaliza-obras/fiscaliza/internal/ai"
)

// Provider is a mock summarization provider.
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	SummarizeResponse string
	SummarizeError    error

	// Call tracking for testing
	SummarizeCalls int
}

// New creates a new mock provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

// Summarize returns the configured response or error, falling back to a
// canned summary.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	p.SummarizeCalls++

	if p.SummarizeError != nil {
		return "", p.SummarizeError
	}
	if p.SummarizeResponse != "" {
		return p.SummarizeResponse, nil
	}

	return "Constatada obra em desacordo com o projeto aprovado; o responsável foi notificado a regularizar a situação no prazo legal.", nil
}

// compile-time interface check
var _ ai.Provider = (*Provider)(nil)
