package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
)

// =============================================================================
// List PDF Generator
// =============================================================================

// ListPDFGenerator renders the list export as a landscape PDF: a title
// block followed by an auto-layout grid table, one row per case.
type ListPDFGenerator struct {
	// Page dimensions (A4 landscape in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	contentWidth float64
}

// NewListPDFGenerator creates a new list PDF generator with default settings.
func NewListPDFGenerator() *ListPDFGenerator {
	margin := 14.0
	pageWidth := 297.0 // A4 landscape width in mm
	return &ListPDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   210.0, // A4 landscape height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// Format returns the output format of this generator.
func (g *ListPDFGenerator) Format() Format {
	return FormatPDF
}

// Generate renders the given cases and writes the file to w.
func (g *ListPDFGenerator) Generate(ctx context.Context, inspections []*domain.Inspection, w io.Writer) (int64, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Relatório de Chamados de Fiscalização"), false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(g.margin, 22, tr("Relatório de Chamados de Fiscalização"))

	rows := Rows(inspections)
	widths := g.columnWidths(pdf, tr, rows)

	y := 30.0
	y = g.drawHeaderRow(pdf, tr, widths, y)
	for _, row := range rows {
		y = g.drawRow(pdf, tr, widths, row, y)
	}

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	if err == nil {
		metrics.ExportsGenerated.WithLabelValues(string(FormatPDF)).Inc()
	}
	return int64(n), err
}

// =============================================================================
// Auto-Layout Table
// =============================================================================

const (
	tableFontSize = 8.0
	cellPadding   = 1.5
	lineHeight    = 3.5
	minColWidth   = 16.0
)

// columnWidths distributes the content width across columns in proportion
// to the widest string each will hold, clamped to a minimum so narrow
// columns stay readable.
func (g *ListPDFGenerator) columnWidths(pdf *fpdf.Fpdf, tr func(string) string, rows [][]string) []float64 {
	pdf.SetFont("Helvetica", "B", tableFontSize)

	widest := make([]float64, len(Labels))
	for i, label := range Labels {
		widest[i] = pdf.GetStringWidth(tr(label))
	}
	pdf.SetFont("Helvetica", "", tableFontSize)
	for _, row := range rows {
		for i, cell := range row {
			if w := pdf.GetStringWidth(tr(cell)); w > widest[i] {
				widest[i] = w
			}
		}
	}

	var total float64
	for _, w := range widest {
		total += w
	}

	widths := make([]float64, len(widest))
	remaining := g.contentWidth
	for i, w := range widest {
		widths[i] = g.contentWidth * w / total
		if widths[i] < minColWidth {
			widths[i] = minColWidth
		}
		remaining -= widths[i]
	}
	// Clamping can overshoot the page; shave the excess off the widest column.
	if remaining < 0 {
		widestIdx := 0
		for i, w := range widths {
			if w > widths[widestIdx] {
				widestIdx = i
			}
		}
		widths[widestIdx] += remaining
	}
	return widths
}

func (g *ListPDFGenerator) drawHeaderRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, y float64) float64 {
	pdf.SetFont("Helvetica", "B", tableFontSize)

	height := g.rowHeight(pdf, tr, widths, Labels)
	pdf.SetFillColor(13, 71, 161)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(13, 71, 161)

	x := g.margin
	for i, label := range Labels {
		pdf.Rect(x, y, widths[i], height, "FD")
		g.drawCellText(pdf, tr, x, y, widths[i], label)
		x += widths[i]
	}
	return y + height
}

func (g *ListPDFGenerator) drawRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, row []string, y float64) float64 {
	pdf.SetFont("Helvetica", "", tableFontSize)

	height := g.rowHeight(pdf, tr, widths, row)
	if y+height > g.pageHeight-g.margin {
		pdf.AddPage()
		y = g.margin
		y = g.drawHeaderRow(pdf, tr, widths, y)
		pdf.SetFont("Helvetica", "", tableFontSize)
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(180, 180, 180)

	x := g.margin
	for i, cell := range row {
		pdf.Rect(x, y, widths[i], height, "D")
		g.drawCellText(pdf, tr, x, y, widths[i], cell)
		x += widths[i]
	}
	return y + height
}

// rowHeight is the height of the tallest wrapped cell plus padding.
func (g *ListPDFGenerator) rowHeight(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, row []string) float64 {
	maxLines := 1
	for i, cell := range row {
		lines := pdf.SplitText(tr(cell), widths[i]-2*cellPadding)
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	return float64(maxLines)*lineHeight + 2*cellPadding
}

func (g *ListPDFGenerator) drawCellText(pdf *fpdf.Fpdf, tr func(string) string, x, y, width float64, cell string) {
	lines := pdf.SplitText(tr(cell), width-2*cellPadding)
	ty := y + cellPadding + lineHeight*0.75
	for _, line := range lines {
		pdf.Text(x+cellPadding, ty, line)
		ty += lineHeight
	}
}
