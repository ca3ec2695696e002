package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/ai"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Summary Service
// =============================================================================

// Placeholder texts stored when summarization cannot produce real output.
// Summarization never fails the operation: the placeholder is the result.
const (
	summaryNotConfigured = "Chave de API não configurada. A sumarização está desabilitada."
	summaryEmpty         = "Não foi possível gerar um resumo."
	summaryUnavailable   = "Erro ao se comunicar com o serviço de IA. Tente novamente mais tarde."
)

// SummaryService condenses a case's field report into a stored one-paragraph
// summary.
type SummaryService interface {
	// SummarizeReport generates and stores the summary for a case.
	// Returns domain.EINVALID when the case has no report yet, and
	// domain.ENOTFOUND when the case does not exist. Provider failures do
	// not error; they store placeholder text instead.
	SummarizeReport(ctx context.Context, id uuid.UUID) (*domain.Inspection, error)
}

type summaryService struct {
	repo     repository.InspectionRepository
	provider ai.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(repo repository.InspectionRepository, provider ai.Provider, logger *slog.Logger) SummaryService {
	return &summaryService{
		repo:     repo,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// SummarizeReport generates and stores the summary for a case.
//
// The summary is a derived field: storing it produces no history entry.
func (s *summaryService) SummarizeReport(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	const op = "summary.generate"

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp.Report == "" {
		return nil, domain.Invalid(op, "o chamado ainda não possui relatório da constatação")
	}

	summary := s.summarize(ctx, insp.Report)

	insp.ReportSummary = summary
	insp.UpdatedAt = s.now()
	if err := s.repo.Replace(ctx, insp); err != nil {
		return nil, domain.Internal(err, op, "falha ao gravar resumo")
	}

	return insp, nil
}

// summarize calls the provider and maps failures onto placeholder text.
func (s *summaryService) summarize(ctx context.Context, report string) string {
	summary, err := s.provider.Summarize(ctx, report)
	if err == nil {
		metrics.AIAPICalls.WithLabelValues("ok").Inc()
		return summary
	}

	metrics.AIAPICalls.WithLabelValues("error").Inc()
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return summaryNotConfigured
	case errors.Is(err, ai.ErrEmptyResponse):
		return summaryEmpty
	default:
		s.logger.Error("summarization failed", "error", err)
		return summaryUnavailable
	}
}
