package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/fiscaliza-obras/fiscaliza/internal/auth"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/export"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// maxPhotoUploadSize caps multipart photo uploads.
const maxPhotoUploadSize = 15 << 20 // 15 MB

// =============================================================================
// Inspection Handler
// =============================================================================

// InspectionHandler handles inspection case requests.
//
// Routes handled:
//   - GET  /api/inspections
//   - POST /api/inspections
//   - GET  /api/inspections/{id}
//   - PUT  /api/inspections/{id}
//   - POST /api/inspections/{id}/photos
//   - POST /api/inspections/{id}/follow-ups
//   - POST /api/inspections/{id}/summary
//   - GET  /api/inspections/{id}/report
type InspectionHandler struct {
	inspectionService service.InspectionService
	summaryService    service.SummaryService
	detailGenerator   *export.DetailGenerator
	logger            *slog.Logger
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(
	inspectionService service.InspectionService,
	summaryService service.SummaryService,
	detailGenerator *export.DetailGenerator,
	logger *slog.Logger,
) *InspectionHandler {
	return &InspectionHandler{
		inspectionService: inspectionService,
		summaryService:    summaryService,
		detailGenerator:   detailGenerator,
		logger:            logger,
	}
}

// RegisterRoutes registers the inspection routes with the provided mux.
// All routes require an authenticated user.
func (h *InspectionHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/inspections", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("POST /api/inspections", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/inspections/{id}", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("PUT /api/inspections/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/inspections/{id}/photos", requireUser(http.HandlerFunc(h.AddPhoto)))
	mux.Handle("POST /api/inspections/{id}/follow-ups", requireUser(http.HandlerFunc(h.AddFollowUp)))
	mux.Handle("POST /api/inspections/{id}/summary", requireUser(http.HandlerFunc(h.Summarize)))
	mux.Handle("GET /api/inspections/{id}/report", requireUser(http.HandlerFunc(h.Report)))
}

// =============================================================================
// GET /api/inspections
// =============================================================================

// Index returns all inspections, newest first.
func (h *InspectionHandler) Index(w http.ResponseWriter, r *http.Request) {
	inspections, err := h.inspectionService.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, inspections)
}

// =============================================================================
// POST /api/inspections
// =============================================================================

type createInspectionRequest struct {
	Address            string              `json:"address"`
	Source             string              `json:"source"`
	Type               string              `json:"type"`
	Description        string              `json:"description"`
	ComplainantName    string              `json:"complainantName"`
	ComplainantAddress string              `json:"complainantAddress"`
	ContactPhone       string              `json:"contactPhone"`
	RespondentName     string              `json:"respondentName"`
	Inspector          string              `json:"inspector"`
	ReferencePoint     string              `json:"referencePoint"`
	ComplaintDate      string              `json:"complaintDate"`
	Latitude           *float64            `json:"latitude"`
	Longitude          *float64            `json:"longitude"`
	Attachments        []domain.Attachment `json:"attachments"`
}

// Create registers a new inspection case.
func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.CreateInspectionParams{
		Address:            req.Address,
		Source:             domain.InspectionSource(req.Source),
		Type:               domain.InspectionType(req.Type),
		Description:        req.Description,
		ComplainantName:    req.ComplainantName,
		ComplainantAddress: req.ComplainantAddress,
		ContactPhone:       req.ContactPhone,
		RespondentName:     req.RespondentName,
		Inspector:          req.Inspector,
		ReferencePoint:     req.ReferencePoint,
		ComplaintDate:      req.ComplaintDate,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Attachments:        req.Attachments,
	}

	insp, err := h.inspectionService.Create(r.Context(), actorName(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, insp)
}

// =============================================================================
// GET /api/inspections/{id}
// =============================================================================

// Show returns a single inspection by ID.
func (h *InspectionHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	insp, err := h.inspectionService.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, insp)
}

// =============================================================================
// PUT /api/inspections/{id}
// =============================================================================

type updateInspectionRequest struct {
	Status              *string         `json:"status"`
	Inspector           *string         `json:"inspector"`
	Report              *string         `json:"report"`
	ReportSummary       *string         `json:"reportSummary"`
	Actions             []string        `json:"actions"`
	VerifiedInfractions map[string]bool `json:"verifiedInfractions"`
}

// Update applies the editable detail fields to an inspection. Absent fields
// are left unchanged; changes are diffed into the audit history.
func (h *InspectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req updateInspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.UpdateInspectionParams{
		Inspector:     req.Inspector,
		Report:        req.Report,
		ReportSummary: req.ReportSummary,
	}
	if req.Status != nil {
		status := domain.InspectionStatus(*req.Status)
		params.Status = &status
	}
	if req.Actions != nil {
		params.Actions = make([]domain.InspectionAction, len(req.Actions))
		for i, a := range req.Actions {
			params.Actions[i] = domain.InspectionAction(a)
		}
	}
	if req.VerifiedInfractions != nil {
		params.VerifiedInfractions = make(map[domain.InspectionType]bool, len(req.VerifiedInfractions))
		for k, v := range req.VerifiedInfractions {
			params.VerifiedInfractions[domain.InspectionType(k)] = v
		}
	}

	insp, err := h.inspectionService.Update(r.Context(), id, actorName(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, insp)
}

// =============================================================================
// POST /api/inspections/{id}/photos
// =============================================================================

type addPhotoRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// AddPhoto attaches an evidence photo to an inspection.
//
// Accepts either a JSON body with a URL or data URI, or a multipart form
// with a "photo" file, which is stored through the storage provider.
func (h *InspectionHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.uploadPhoto(w, r, id)
		return
	}

	var req addPhotoRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	insp, err := h.inspectionService.AddPhoto(r.Context(), id, actorName(r), domain.AddPhotoParams{
		URL:  req.URL,
		Name: req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, insp)
}

func (h *InspectionHandler) uploadPhoto(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := r.ParseMultipartForm(maxPhotoUploadSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.uploadPhoto", "Envio de arquivo inválido."))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.uploadPhoto", "Arquivo de foto ausente."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoUploadSize+1))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.uploadPhoto", "failed to read upload"))
		return
	}
	if len(data) > maxPhotoUploadSize {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.uploadPhoto", "Arquivo de foto muito grande."))
		return
	}

	contentType := header.Header.Get("Content-Type")
	insp, err := h.inspectionService.UploadPhoto(r.Context(), id, actorName(r), header.Filename, contentType, data)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, insp)
}

// =============================================================================
// POST /api/inspections/{id}/follow-ups
// =============================================================================

type addFollowUpRequest struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// AddFollowUp schedules a return visit on an inspection.
func (h *InspectionHandler) AddFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req addFollowUpRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	insp, err := h.inspectionService.AddFollowUp(r.Context(), id, actorName(r), domain.AddFollowUpParams{
		Date:  req.Date,
		Notes: req.Notes,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, insp)
}

// =============================================================================
// POST /api/inspections/{id}/summary
// =============================================================================

// Summarize generates the findings summary for an inspection's report text.
// Returns the updated inspection; on provider failure the summary field
// carries the placeholder text instead of an error.
func (h *InspectionHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	insp, err := h.summaryService.SummarizeReport(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, insp)
}

// =============================================================================
// GET /api/inspections/{id}/report
// =============================================================================

// Report streams the inspection's detail report as a PDF download.
func (h *InspectionHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	insp, err := h.inspectionService.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": export.DetailFilename(insp.Protocol)}))

	n, err := h.detailGenerator.Generate(r.Context(), insp, w)
	if err != nil {
		// Headers are already written; log and abort the stream.
		h.logger.Error("detail report generation failed", "inspection_id", id, "error", err)
		return
	}

	h.logger.Info("detail report generated",
		"inspection_id", id,
		"protocol", insp.Protocol,
		"bytes", n,
	)
}

// =============================================================================
// Helpers
// =============================================================================

// pathID parses the {id} path segment as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.pathID", "Identificador inválido.")
	}
	return id, nil
}

// actorName returns the display name of the authenticated user for history
// attribution. Routes using it run behind RequireUser.
func actorName(r *http.Request) string {
	if user := auth.GetUser(r.Context()); user != nil {
		return user.Name
	}
	return "Sistema"
}
