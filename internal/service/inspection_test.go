package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

// newTestInspectionService wires the service to an in-memory store with a
// clock that advances one minute per mutating call, so history entries from
// separate operations never tie on timestamp.
func newTestInspectionService(t *testing.T) (InspectionService, *repository.Memory) {
	t.Helper()
	repo := repository.NewMemory()
	logger := slog.New(slog.DiscardHandler)
	calls := 0
	svc := NewInspectionService(repo, logger, withClock(func() time.Time {
		calls++
		return testTime.Add(time.Duration(calls) * time.Minute)
	}))
	return svc, repo
}

func validCreateParams() domain.CreateInspectionParams {
	return domain.CreateInspectionParams{
		Address:     "Rua das Acácias, 120",
		Source:      domain.SourceCitizenWhatsApp,
		Type:        domain.TypeWorkOffProject,
		Description: "Obra avançando sobre a calçada.",
	}
}

// =============================================================================
// Create
// =============================================================================

func TestInspectionCreate(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOpen, created.Status)
	assert.Equal(t, "2024-001", created.Protocol)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.Len(t, created.History, 1)
	assert.Equal(t, "Chamado criado.", created.History[0].Change)
	assert.Equal(t, "Ana Souza", created.History[0].User)
}

func TestInspectionCreateWithInspectorSkipsOpen(t *testing.T) {
	svc, _ := newTestInspectionService(t)

	params := validCreateParams()
	params.Inspector = "Carlos Lima"

	created, err := svc.Create(context.Background(), "Ana Souza", params)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUnderReview, created.Status)
	require.Len(t, created.History, 1)
	assert.Equal(t, "Chamado criado e atribuído para Carlos Lima.", created.History[0].Change)
}

func TestInspectionCreateValidation(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()
	lat := -23.55

	tests := []struct {
		name   string
		mutate func(*domain.CreateInspectionParams)
	}{
		{"missing address", func(p *domain.CreateInspectionParams) { p.Address = "   " }},
		{"invalid source", func(p *domain.CreateInspectionParams) { p.Source = "Carta" }},
		{"invalid type", func(p *domain.CreateInspectionParams) { p.Type = "Inexistente" }},
		{"bad complaint date", func(p *domain.CreateInspectionParams) { p.ComplaintDate = "15/06/2024" }},
		{"latitude without longitude", func(p *domain.CreateInspectionParams) { p.Latitude = &lat }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validCreateParams()
			tt.mutate(&params)

			_, err := svc.Create(ctx, "Ana Souza", params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

// =============================================================================
// Update
// =============================================================================

func TestInspectionUpdateSynthesizesHistory(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	status := domain.StatusInProgress
	inspector := "Carlos Lima"
	updated, err := svc.Update(ctx, created.ID, "Ana Souza", domain.UpdateInspectionParams{
		Status:    &status,
		Inspector: &inspector,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, "Carlos Lima", updated.Inspector)
	// creation entry plus two change entries, newest first
	require.Len(t, updated.History, 3)
	changes := []string{updated.History[0].Change, updated.History[1].Change}
	assert.Contains(t, changes, `Status alterado de "Aberto" para "Em Andamento".`)
	assert.Contains(t, changes, "Fiscal Carlos Lima foi atribuído.")
}

func TestInspectionUpdateNoopProducesNoHistory(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	// same status and a reordering of an empty action set change nothing
	status := created.Status
	updated, err := svc.Update(ctx, created.ID, "Ana Souza", domain.UpdateInspectionParams{
		Status: &status,
	})
	require.NoError(t, err)
	assert.Len(t, updated.History, 1)
}

func TestInspectionUpdateSummaryIsNotTracked(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	summary := "Resumo gerado."
	updated, err := svc.Update(ctx, created.ID, "Ana Souza", domain.UpdateInspectionParams{
		ReportSummary: &summary,
	})
	require.NoError(t, err)

	assert.Equal(t, "Resumo gerado.", updated.ReportSummary)
	assert.Len(t, updated.History, 1)
}

func TestInspectionUpdateNotFound(t *testing.T) {
	svc, _ := newTestInspectionService(t)

	_, err := svc.Update(context.Background(), uuid.New(), "Ana Souza", domain.UpdateInspectionParams{})
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestInspectionUpdateInvalidStatus(t *testing.T) {
	svc, _ := newTestInspectionService(t)

	bad := domain.InspectionStatus("Arquivado")
	_, err := svc.Update(context.Background(), uuid.New(), "Ana Souza", domain.UpdateInspectionParams{
		Status: &bad,
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

// =============================================================================
// Photos
// =============================================================================

func TestInspectionAddPhoto(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	updated, err := svc.AddPhoto(ctx, created.ID, "Ana Souza", domain.AddPhotoParams{
		URL:  "https://fotos.example/obra.jpg",
		Name: "obra.jpg",
	})
	require.NoError(t, err)

	require.Len(t, updated.Photos, 1)
	assert.Equal(t, "obra.jpg", updated.Photos[0].Name)
	require.Len(t, updated.History, 2)
	assert.Equal(t, "Nova foto adicionada: obra.jpg.", updated.History[0].Change)
}

func TestInspectionUploadPhotoWithoutStorageInlinesDataURI(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	updated, err := svc.UploadPhoto(ctx, created.ID, "Ana Souza", "obra.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)

	require.Len(t, updated.Photos, 1)
	assert.True(t, strings.HasPrefix(updated.Photos[0].URL, "data:image/jpeg;base64,"))
}

func TestInspectionUploadPhotoRejectsUnsupportedType(t *testing.T) {
	svc, _ := newTestInspectionService(t)

	_, err := svc.UploadPhoto(context.Background(), uuid.New(), "Ana Souza", "laudo.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

// =============================================================================
// Follow-Ups
// =============================================================================

func TestInspectionAddFollowUpForcesStatus(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	updated, err := svc.AddFollowUp(ctx, created.ID, "Ana Souza", domain.AddFollowUpParams{
		Date:  "2024-07-01",
		Notes: "Verificar recuo da calçada.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingFollowUp, updated.Status)
	require.Len(t, updated.FollowUps, 1)
	assert.False(t, updated.FollowUps[0].Completed)
	// creation + forced status + scheduling
	require.Len(t, updated.History, 3)
}

func TestInspectionAddFollowUpAlreadyPending(t *testing.T) {
	svc, _ := newTestInspectionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ana Souza", validCreateParams())
	require.NoError(t, err)

	_, err = svc.AddFollowUp(ctx, created.ID, "Ana Souza", domain.AddFollowUpParams{Date: "2024-07-01"})
	require.NoError(t, err)

	updated, err := svc.AddFollowUp(ctx, created.ID, "Ana Souza", domain.AddFollowUpParams{Date: "2024-07-15"})
	require.NoError(t, err)

	// second scheduling adds only the scheduling entry, no status entry
	assert.Len(t, updated.FollowUps, 2)
	assert.Len(t, updated.History, 4)
	assert.Equal(t, "Agendamento de retorno criado para 15/07/2024.", updated.History[0].Change)
}

func TestInspectionAddFollowUpInvalidDate(t *testing.T) {
	svc, _ := newTestInspectionService(t)

	_, err := svc.AddFollowUp(context.Background(), uuid.New(), "Ana Souza", domain.AddFollowUpParams{Date: "01/07/2024"})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
