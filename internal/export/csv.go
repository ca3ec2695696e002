package export

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
)

// =============================================================================
// CSV Generator
// =============================================================================

// CSVGenerator renders the list export as delimited text. Cells are quoted
// only when they contain a comma, a quote or a newline, with embedded
// quotes doubled.
type CSVGenerator struct{}

// NewCSVGenerator creates a new CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format returns the output format of this generator.
func (g *CSVGenerator) Format() Format {
	return FormatCSV
}

// Generate renders the given cases and writes the file to w.
func (g *CSVGenerator) Generate(ctx context.Context, inspections []*domain.Inspection, w io.Writer) (int64, error) {
	var buf bytes.Buffer

	writeLine(&buf, Labels)
	for _, row := range Rows(inspections) {
		buf.WriteByte('\n')
		writeLine(&buf, row)
	}

	n, err := w.Write(buf.Bytes())
	if err == nil {
		metrics.ExportsGenerated.WithLabelValues(string(FormatCSV)).Inc()
	}
	return int64(n), err
}

func writeLine(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(EscapeCell(cell))
	}
}

// EscapeCell quotes a cell value when it contains a delimiter, a quote or a
// newline, doubling embedded quotes. Values without special characters pass
// through unchanged.
func EscapeCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
