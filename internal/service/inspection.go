// Package service contains the business logic layer.
//
// This file implements the inspection service for managing building-code
// complaint cases.
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/fiscaliza-obras/fiscaliza/internal/storage"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// InspectionService defines the operations on inspection cases.
//
// Every mutating operation takes the acting user's display name; the name is
// recorded on the synthesized history entries.
type InspectionService interface {
	// List retrieves all cases, newest first.
	List(ctx context.Context) ([]domain.Inspection, error)

	// GetByID retrieves a case.
	// Returns domain.ENOTFOUND if the case does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error)

	// Create registers a new case. The protocol is assigned by the store and
	// the initial status follows from whether an inspector was pre-assigned.
	// Returns domain.EINVALID for validation errors.
	Create(ctx context.Context, user string, params domain.CreateInspectionParams) (*domain.Inspection, error)

	// Update merges the given changes into a case and synthesizes one
	// history entry per tracked field that changed.
	// Returns domain.ENOTFOUND if the case does not exist.
	Update(ctx context.Context, id uuid.UUID, user string, params domain.UpdateInspectionParams) (*domain.Inspection, error)

	// AddPhoto attaches an evidence photo that already has a URL.
	AddPhoto(ctx context.Context, id uuid.UUID, user string, params domain.AddPhotoParams) (*domain.Inspection, error)

	// UploadPhoto stores raw photo bytes and attaches the resulting URL.
	// Returns domain.EINVALID for unsupported image types.
	UploadPhoto(ctx context.Context, id uuid.UUID, user, filename, contentType string, data []byte) (*domain.Inspection, error)

	// AddFollowUp schedules a return visit. Scheduling forces the case into
	// the pending-follow-up status; that forced transition is itself
	// recorded in the history.
	AddFollowUp(ctx context.Context, id uuid.UUID, user string, params domain.AddFollowUpParams) (*domain.Inspection, error)
}

// =============================================================================
// Implementation
// =============================================================================

// inspectionService implements the InspectionService interface.
type inspectionService struct {
	repo    repository.InspectionRepository
	store   storage.Storage // nil means photos are kept inline as data URIs
	thumbs  *Thumbnailer
	archive *repository.Archive // nil disables municipal-archive mirroring
	logger  *slog.Logger
	now     func() time.Time
}

// InspectionServiceOption configures optional collaborators.
type InspectionServiceOption func(*inspectionService)

// WithStorage enables storage-backed photo uploads.
func WithStorage(store storage.Storage, thumbs *Thumbnailer) InspectionServiceOption {
	return func(s *inspectionService) {
		s.store = store
		s.thumbs = thumbs
	}
}

// WithArchive enables fire-and-forget mirroring into the municipal archive.
func WithArchive(archive *repository.Archive) InspectionServiceOption {
	return func(s *inspectionService) { s.archive = archive }
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) InspectionServiceOption {
	return func(s *inspectionService) { s.now = now }
}

// NewInspectionService creates a new InspectionService.
func NewInspectionService(
	repo repository.InspectionRepository,
	logger *slog.Logger,
	opts ...InspectionServiceOption,
) InspectionService {
	s := &inspectionService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// List / GetByID
// =============================================================================

// List retrieves all cases, newest first.
func (s *inspectionService) List(ctx context.Context) ([]domain.Inspection, error) {
	const op = "inspection.list"

	inspections, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao listar chamados")
	}
	return inspections, nil
}

// GetByID retrieves a case.
func (s *inspectionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	const op = "inspection.get"

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, err
		}
		return nil, domain.Internal(err, op, "falha ao buscar chamado")
	}
	return insp, nil
}

// =============================================================================
// Create
// =============================================================================

// Create registers a new case.
func (s *inspectionService) Create(ctx context.Context, user string, params domain.CreateInspectionParams) (*domain.Inspection, error) {
	const op = "inspection.create"

	if err := s.validateCreateParams(params); err != nil {
		return nil, err
	}

	now := s.now()
	insp := &domain.Inspection{
		ID:                  uuid.New(),
		Source:              params.Source,
		Type:                params.Type,
		Status:              domain.InitialStatus(params.Inspector),
		Description:         strings.TrimSpace(params.Description),
		ComplainantName:     params.ComplainantName,
		ComplainantAddress:  params.ComplainantAddress,
		ContactPhone:        params.ContactPhone,
		RespondentName:      params.RespondentName,
		Inspector:           params.Inspector,
		Address:             strings.TrimSpace(params.Address),
		ReferencePoint:      params.ReferencePoint,
		Latitude:            params.Latitude,
		Longitude:           params.Longitude,
		CreatedAt:           now,
		UpdatedAt:           now,
		ComplaintDate:       params.ComplaintDate,
		Attachments:         params.Attachments,
		VerifiedInfractions: map[domain.InspectionType]bool{},
		History: []domain.HistoryEntry{
			domain.CreationEntry(user, params.Inspector, now),
		},
	}

	created, err := s.repo.Insert(ctx, insp)
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao registrar chamado")
	}

	s.logger.Info("inspection created",
		"inspection_id", created.ID,
		"protocol", created.Protocol,
		"status", created.Status,
		"user", user,
	)
	metrics.InspectionsCreated.Inc()

	s.mirrorWorkSite(created)

	return created, nil
}

// validateCreateParams validates case registration parameters.
func (s *inspectionService) validateCreateParams(params domain.CreateInspectionParams) error {
	const op = "inspection.validate"

	if strings.TrimSpace(params.Address) == "" {
		return domain.Invalid(op, "o endereço da ocorrência é obrigatório")
	}
	if !params.Source.IsValid() {
		return domain.Invalid(op, fmt.Sprintf("origem inválida: %s", params.Source))
	}
	if !params.Type.IsValid() {
		return domain.Invalid(op, fmt.Sprintf("tipo inválido: %s", params.Type))
	}
	if params.ComplaintDate != "" {
		if _, err := time.Parse("2006-01-02", params.ComplaintDate); err != nil {
			return domain.Invalid(op, "data da reclamação inválida")
		}
	}
	if (params.Latitude == nil) != (params.Longitude == nil) {
		return domain.Invalid(op, "latitude e longitude devem ser informadas juntas")
	}
	return nil
}

// =============================================================================
// Update
// =============================================================================

// Update merges changes into a case and records the resulting history.
func (s *inspectionService) Update(ctx context.Context, id uuid.UUID, user string, params domain.UpdateInspectionParams) (*domain.Inspection, error) {
	const op = "inspection.update"

	if params.Status != nil && !params.Status.IsValid() {
		return nil, domain.Invalid(op, fmt.Sprintf("status inválido: %s", *params.Status))
	}
	for _, a := range params.Actions {
		if !a.IsValid() {
			return nil, domain.Invalid(op, fmt.Sprintf("ação inválida: %s", a))
		}
	}

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := domain.DiffChanges(insp, params, user, now)
	reportChanged := params.Report != nil && *params.Report != insp.Report

	if params.Status != nil {
		insp.Status = *params.Status
	}
	if params.Inspector != nil && *params.Inspector != "" {
		insp.Inspector = *params.Inspector
	}
	if params.Report != nil {
		insp.Report = *params.Report
	}
	if params.ReportSummary != nil {
		insp.ReportSummary = *params.ReportSummary
	}
	if params.Actions != nil {
		insp.Actions = params.Actions
	}
	if params.VerifiedInfractions != nil {
		insp.VerifiedInfractions = params.VerifiedInfractions
	}

	insp.History = append(insp.History, entries...)
	domain.SortHistory(insp.History)
	insp.UpdatedAt = now

	if err := s.repo.Replace(ctx, insp); err != nil {
		return nil, domain.Internal(err, op, "falha ao atualizar chamado")
	}

	s.logger.Info("inspection updated",
		"inspection_id", id,
		"user", user,
		"history_entries", len(entries),
	)
	metrics.InspectionsUpdated.Inc()

	if reportChanged {
		s.mirrorReport(insp)
	}

	return insp, nil
}

// =============================================================================
// Photos
// =============================================================================

// AddPhoto attaches a photo that already has a URL.
func (s *inspectionService) AddPhoto(ctx context.Context, id uuid.UUID, user string, params domain.AddPhotoParams) (*domain.Inspection, error) {
	const op = "inspection.add_photo"

	if params.URL == "" {
		return nil, domain.Invalid(op, "a URL da foto é obrigatória")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "o nome da foto é obrigatório")
	}

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	insp.Photos = append(insp.Photos, domain.Photo{
		ID:         uuid.New(),
		URL:        params.URL,
		Name:       params.Name,
		UploadedAt: now,
	})
	insp.History = append(insp.History, domain.PhotoEntry(params.Name, user, now))
	domain.SortHistory(insp.History)
	insp.UpdatedAt = now

	if err := s.repo.Replace(ctx, insp); err != nil {
		return nil, domain.Internal(err, op, "falha ao anexar foto")
	}

	s.logger.Info("photo attached",
		"inspection_id", id,
		"photo_name", params.Name,
		"user", user,
	)
	metrics.PhotosUploaded.Inc()

	return insp, nil
}

// UploadPhoto stores raw photo bytes and attaches the resulting URL. Without
// configured storage the bytes are kept inline as a data URI.
func (s *inspectionService) UploadPhoto(ctx context.Context, id uuid.UUID, user, filename, contentType string, data []byte) (*domain.Inspection, error) {
	const op = "inspection.upload_photo"

	if len(data) == 0 {
		return nil, domain.Invalid(op, "o arquivo da foto está vazio")
	}
	if !storage.IsAllowedPhotoType(contentType) {
		return nil, domain.Invalid(op, fmt.Sprintf("formato de imagem não suportado: %s", contentType))
	}

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storePhoto(ctx, insp.Protocol, filename, contentType, data)
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao armazenar foto")
	}

	return s.AddPhoto(ctx, id, user, domain.AddPhotoParams{URL: url, Name: filename})
}

// storePhoto writes the photo (and a best-effort thumbnail) to storage and
// returns its public URL. Falls back to an inline data URI without storage.
func (s *inspectionService) storePhoto(ctx context.Context, protocol, filename, contentType string, data []byte) (string, error) {
	if s.store == nil {
		return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
	}

	key := storage.PhotoKey(protocol, filename)
	err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     maxPhotoSize,
		Public:      true,
	})
	if err != nil {
		return "", err
	}

	if s.thumbs != nil {
		if thumb, err := s.thumbs.Generate(data); err != nil {
			s.logger.Warn("thumbnail generation failed", "key", key, "error", err)
		} else {
			thumbKey := storage.ThumbnailKey(key)
			if err := s.store.Put(ctx, thumbKey, bytes.NewReader(thumb), storage.PutOptions{
				ContentType: "image/jpeg",
				Public:      true,
			}); err != nil {
				s.logger.Warn("thumbnail upload failed", "key", thumbKey, "error", err)
			}
		}
	}

	return s.store.URL(ctx, key, 0)
}

// maxPhotoSize caps evidence photo uploads at 20MB.
const maxPhotoSize = 20 * 1024 * 1024

// =============================================================================
// Follow-Ups
// =============================================================================

// AddFollowUp schedules a return visit.
func (s *inspectionService) AddFollowUp(ctx context.Context, id uuid.UUID, user string, params domain.AddFollowUpParams) (*domain.Inspection, error) {
	const op = "inspection.add_follow_up"

	if _, err := time.Parse("2006-01-02", params.Date); err != nil {
		return nil, domain.Invalid(op, "data de retorno inválida")
	}

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := domain.FollowUpEntries(insp.Status, params.Date, user, now)

	insp.FollowUps = append(insp.FollowUps, domain.FollowUp{
		ID:    uuid.New(),
		Date:  params.Date,
		Notes: params.Notes,
	})
	insp.Status = domain.StatusPendingFollowUp
	insp.History = append(insp.History, entries...)
	domain.SortHistory(insp.History)
	insp.UpdatedAt = now

	if err := s.repo.Replace(ctx, insp); err != nil {
		return nil, domain.Internal(err, op, "falha ao agendar retorno")
	}

	s.logger.Info("follow-up scheduled",
		"inspection_id", id,
		"date", params.Date,
		"user", user,
	)
	metrics.FollowUpsScheduled.Inc()

	return insp, nil
}

// =============================================================================
// Municipal Archive Mirroring
// =============================================================================

// mirrorWorkSite mirrors the case into the municipal archive. Runs detached
// from the request: a failure is logged and counted, never surfaced.
func (s *inspectionService) mirrorWorkSite(insp *domain.Inspection) {
	if s.archive == nil {
		return
	}
	snapshot := insp.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := s.archive.ArchiveWorkSite(ctx, snapshot); err != nil {
			s.logger.Error("archive work site failed", "protocol", snapshot.Protocol, "error", err)
			metrics.ArchiveWrites.WithLabelValues("error").Inc()
			return
		}
		metrics.ArchiveWrites.WithLabelValues("ok").Inc()
	}()
}

// mirrorReport mirrors an updated field report into the municipal archive.
func (s *inspectionService) mirrorReport(insp *domain.Inspection) {
	if s.archive == nil {
		return
	}
	snapshot := insp.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		photoURL := ""
		if len(snapshot.Photos) > 0 {
			photoURL = snapshot.Photos[0].URL
		}
		if err := s.archive.ArchiveReport(ctx, snapshot, snapshot.Report, photoURL); err != nil {
			s.logger.Error("archive report failed", "protocol", snapshot.Protocol, "error", err)
			metrics.ArchiveWrites.WithLabelValues("error").Inc()
			return
		}
		metrics.ArchiveWrites.WithLabelValues("ok").Inc()
	}()
}
