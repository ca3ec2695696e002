// Package export renders inspection case lists and single-case detail
// reports in the formats the department distributes: PDF, CSV, XLSX and a
// Word-compatible HTML table.
//
// All list formats share one column contract defined here, so a value renders
// identically no matter which file the user downloads.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

// =============================================================================
// Format
// =============================================================================

// Format identifies a list export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatDOC  Format = "doc"
)

// AllFormats lists every supported export format.
var AllFormats = []Format{FormatPDF, FormatCSV, FormatXLSX, FormatDOC}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsValid returns true if the format is a recognized value.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatCSV, FormatXLSX, FormatDOC:
		return true
	}
	return false
}

// ContentType returns the MIME type the format is served with. The .doc
// output deliberately uses the legacy Word type so the host OS opens the
// HTML table in a word processor.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatDOC:
		return "application/msword"
	}
	return "application/octet-stream"
}

// Filename returns the download filename for a list export.
func (f Format) Filename() string {
	return "relatorio_chamados." + string(f)
}

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for list export generators.
// Implementations handle the specifics of each format.
type Generator interface {
	// Generate renders the given cases and writes the file to w.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, inspections []*domain.Inspection, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() Format
}

// NewGenerator returns the generator for a format.
func NewGenerator(f Format) (Generator, error) {
	const op = "export.NewGenerator"

	switch f {
	case FormatPDF:
		return NewListPDFGenerator(), nil
	case FormatCSV:
		return NewCSVGenerator(), nil
	case FormatXLSX:
		return NewXLSXGenerator(), nil
	case FormatDOC:
		return NewDOCGenerator(), nil
	}
	return nil, domain.Invalid(op, fmt.Sprintf("Formato de exportação desconhecido: %q.", string(f)))
}

// =============================================================================
// Column Contract
// =============================================================================

// Labels holds the header row shared by every list format, in column order.
var Labels = []string{
	"Protocolo",
	"Endereço do Reclamado / Ocorrência",
	"Ponto de Referência",
	"Tipo",
	"Status",
	"Data da Reclamação",
	"Data de Abertura",
	"Fiscal Responsável",
	"Ações",
}

// Row renders one case into the shared column contract. Empty optional
// fields render as "N/A" in every format.
func Row(i *domain.Inspection) []string {
	return []string{
		i.Protocol,
		orNA(i.Address),
		orNA(i.ReferencePoint),
		i.Type.String(),
		i.Status.String(),
		complaintDateCell(i.ComplaintDate),
		i.CreatedAt.Format("02/01/2006"),
		orNA(i.Inspector),
		actionsCell(i.Actions),
	}
}

// Rows renders every case, preserving input order.
func Rows(inspections []*domain.Inspection) [][]string {
	rows := make([][]string, 0, len(inspections))
	for _, i := range inspections {
		rows = append(rows, Row(i))
	}
	return rows
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func complaintDateCell(date string) string {
	if date == "" {
		return "N/A"
	}
	return domain.FormatDate(date)
}

func actionsCell(actions []domain.InspectionAction) string {
	if len(actions) == 0 {
		return "N/A"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// Subset Selection
// =============================================================================

// Filter returns the cases matching a free-text query and a status. The
// query matches protocol, address or type, case-insensitively; an empty
// query matches everything, and a nil status matches every status.
func Filter(inspections []*domain.Inspection, query string, status *domain.InspectionStatus) []*domain.Inspection {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]*domain.Inspection, 0, len(inspections))
	for _, i := range inspections {
		if status != nil && i.Status != *status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(i.Protocol), query) &&
			!strings.Contains(strings.ToLower(i.Address), query) &&
			!strings.Contains(strings.ToLower(i.Type.String()), query) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// FilterByDateRange returns the cases created within an inclusive date
// range. Both bounds are date-only values in "2006-01-02" form; the end
// date is widened to the last millisecond of that day so the full final
// day is included.
func FilterByDateRange(inspections []*domain.Inspection, start, end string) ([]*domain.Inspection, error) {
	const op = "export.FilterByDateRange"

	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, domain.Invalid(op, fmt.Sprintf("Data inicial inválida: %q.", start))
	}
	until, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, domain.Invalid(op, fmt.Sprintf("Data final inválida: %q.", end))
	}
	until = until.Add(24*time.Hour - time.Millisecond)

	out := make([]*domain.Inspection, 0, len(inspections))
	for _, i := range inspections {
		if i.CreatedAt.Before(from) || i.CreatedAt.After(until) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}
