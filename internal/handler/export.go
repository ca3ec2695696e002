package handler

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/export"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// =============================================================================
// Export Handler
// =============================================================================

// ExportHandler streams filtered case lists as downloadable files.
//
// Routes handled:
//   - GET /api/inspections/export
type ExportHandler struct {
	inspectionService service.InspectionService
	logger            *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(inspectionService service.InspectionService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		inspectionService: inspectionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the export route with the provided mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/inspections/export", requireUser(http.HandlerFunc(h.Export)))
}

// =============================================================================
// GET /api/inspections/export
// =============================================================================

// Export renders the case list in the requested format.
//
// Query parameters:
//   - format: pdf, csv, xlsx or doc (required)
//   - q:      free-text filter on protocol, address and type
//   - status: exact status filter
//   - start, end: inclusive date range ("2006-01-02") on the complaint date;
//     both must be present to take effect
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))
	if !format.IsValid() {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.export", "Formato de exportação inválido."))
		return
	}

	gen, err := export.NewGenerator(format)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspections, err := h.inspectionService.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list := make([]*domain.Inspection, len(inspections))
	for i := range inspections {
		list[i] = &inspections[i]
	}

	query := r.URL.Query().Get("q")
	var status *domain.InspectionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.InspectionStatus(s)
		status = &st
	}
	list = export.Filter(list, query, status)

	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start != "" && end != "" {
		list, err = export.FilterByDateRange(list, start, end)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": format.Filename()}))

	n, err := gen.Generate(r.Context(), list, w)
	if err != nil {
		h.logger.Error("export generation failed", "format", format, "error", err)
		return
	}

	h.logger.Info("export generated", "format", format, "cases", len(list), "bytes", n)
}
