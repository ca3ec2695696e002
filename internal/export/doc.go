package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
)

// =============================================================================
// DOC Generator
// =============================================================================

// The Office XML namespaces on the root element let Word treat the file as
// a native document instead of a downloaded web page.
var docTemplate = template.Must(template.New("doc").Parse(
	`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'><head><meta charset='utf-8'><title>Relatório</title></head><body><table border="1"><tr>{{range .Labels}}<th>{{.}}</th>{{end}}</tr>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</table></body></html>`))

// DOCGenerator renders the list export as an HTML table served with the
// legacy Word MIME type. The leading byte order mark keeps Word from
// misreading the UTF-8 Portuguese labels.
type DOCGenerator struct{}

// NewDOCGenerator creates a new Word-compatible generator.
func NewDOCGenerator() *DOCGenerator {
	return &DOCGenerator{}
}

// Format returns the output format of this generator.
func (g *DOCGenerator) Format() Format {
	return FormatDOC
}

// Generate renders the given cases and writes the file to w.
func (g *DOCGenerator) Generate(ctx context.Context, inspections []*domain.Inspection, w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	data := struct {
		Labels []string
		Rows   [][]string
	}{
		Labels: Labels,
		Rows:   Rows(inspections),
	}
	if err := docTemplate.Execute(&buf, data); err != nil {
		return 0, fmt.Errorf("render document: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	if err == nil {
		metrics.ExportsGenerated.WithLabelValues(string(FormatDOC)).Inc()
	}
	return int64(n), err
}
