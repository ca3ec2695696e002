package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
)

// =============================================================================
// Detail Report Generator
// =============================================================================

// DetailFilename returns the download filename for a single-case report.
func DetailFilename(protocol string) string {
	return fmt.Sprintf("Relatorio-Fiscalizacao-%s.pdf", protocol)
}

// DetailGenerator produces the paginated single-case PDF report: a repeated
// page header, sectioned field grids, infraction and action lists, an
// evidence photo grid and a signature block.
type DetailGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	contentWidth float64

	downloader ImageDownloader
	logger     *slog.Logger
}

// NewDetailGenerator creates a detail report generator with default settings.
func NewDetailGenerator(logger *slog.Logger) *DetailGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &DetailGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
		downloader:   NewHTTPImageDownloader(),
		logger:       logger,
	}
}

// Generate renders the report for one case and writes the PDF to w.
// Returns the number of bytes written and any error.
func (g *DetailGenerator) Generate(ctx context.Context, insp *domain.Inspection, w io.Writer) (int64, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Relatório de Fiscalização "+insp.Protocol), false)
	pdf.SetAutoPageBreak(false, 0)

	p := &detailPage{pdf: pdf, tr: tr, g: g}
	p.addPageWithHeader()

	g.addCaseData(p, insp)
	g.addLocationAndParties(p, insp)
	g.addDescription(p, insp)
	g.addFindings(p, insp)
	g.addEvidence(ctx, p, insp)
	g.addFollowUps(p, insp)
	g.addSignature(p)

	p.addPageNumbers()

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	if err == nil {
		metrics.DetailReportsGenerated.Inc()
	}
	return int64(n), err
}

// =============================================================================
// Report Sections
// =============================================================================

func (g *DetailGenerator) addCaseData(p *detailPage, insp *domain.Inspection) {
	p.sectionHeader("Dados do Chamado")
	p.gridField("PROTOCOLO", insp.Protocol, "STATUS ATUAL", insp.Status.String())
	p.gridField(
		"DATA DE ABERTURA", insp.CreatedAt.Format("02/01/2006 15:04"),
		"DATA DA RECLAMAÇÃO", complaintDateCell(insp.ComplaintDate),
	)
	p.gridField("ORIGEM", insp.Source.String(), "TIPO DE FISCALIZAÇÃO", insp.Type.String())
	p.gridField("FISCAL RESPONSÁVEL", orNA(insp.Inspector), "", "")
}

func (g *DetailGenerator) addLocationAndParties(p *detailPage, insp *domain.Inspection) {
	p.sectionHeader("Localização & Partes Envolvidas")
	p.fullWidthField("ENDEREÇO DO RECLAMADO", insp.Address)
	p.fullWidthField("PONTO DE REFERÊNCIA", insp.ReferencePoint)
	p.gridField("RECLAMANTE", orNA(insp.ComplainantName), "RECLAMADO", orNA(insp.RespondentName))
	p.gridField("ENDEREÇO DO RECLAMANTE", orNA(insp.ComplainantAddress), "TELEFONE DE CONTATO", orNA(insp.ContactPhone))
}

func (g *DetailGenerator) addDescription(p *detailPage, insp *domain.Inspection) {
	p.sectionHeader("Descrição Inicial da Ocorrência")
	description := insp.Description
	if description == "" {
		description = "Nenhuma descrição fornecida."
	}
	p.fullWidthField("", description)
}

func (g *DetailGenerator) addFindings(p *detailPage, insp *domain.Inspection) {
	p.sectionHeader("Constatação da Fiscalização")
	p.fullWidthField("RELATÓRIO DA CONSTATAÇÃO", insp.Report)

	p.smallLabel("TIPOS DE INFRAÇÃO VERIFICADA")
	infractions := insp.VerifiedInfractionList()
	if len(infractions) == 0 {
		p.bulletedList([]string{"Nenhuma infração verificada."})
	} else {
		items := make([]string, len(infractions))
		for i, t := range infractions {
			items[i] = t.String()
		}
		p.bulletedList(items)
	}

	p.smallLabel("AÇÕES DA FISCALIZAÇÃO")
	if len(insp.Actions) == 0 {
		p.bulletedList([]string{"Nenhuma ação registrada."})
	} else {
		items := make([]string, len(insp.Actions))
		for i, a := range insp.Actions {
			items[i] = a.String()
		}
		p.bulletedList(items)
	}
}

func (g *DetailGenerator) addEvidence(ctx context.Context, p *detailPage, insp *domain.Inspection) {
	p.sectionHeader("Evidências Anexadas")

	if len(insp.Photos) > 0 {
		p.smallLabel("RELATÓRIO FOTOGRÁFICO")
		p.y++
		g.addPhotoGrid(ctx, p, insp.Photos)
	}

	if len(insp.Attachments) > 0 {
		p.smallLabel("DOCUMENTOS ANEXADOS NA ABERTURA")
		names := make([]string, len(insp.Attachments))
		for i, a := range insp.Attachments {
			names[i] = a.Name
		}
		p.bulletedList(names)
	}
}

// addPhotoGrid lays photos out two per row. Each photo keeps its intrinsic
// aspect ratio scaled to the column width, so rendered heights vary and the
// page-break check runs per photo.
func (g *DetailGenerator) addPhotoGrid(ctx context.Context, p *detailPage, photos []domain.Photo) {
	photoWidth := (g.contentWidth - 5) / 2
	photoX := g.margin

	for i, photo := range photos {
		img, err := loadPhoto(ctx, g.downloader, photo.URL)
		if err != nil {
			g.logger.Warn("skipping photo in detail report",
				"photo_id", photo.ID,
				"error", err,
			)
			continue
		}

		photoHeight := float64(img.Height) * photoWidth / float64(img.Width)
		p.checkPageBreak(photoHeight + 5)

		name := "photo-" + photo.ID.String()
		if photo.ID == uuid.Nil {
			name = fmt.Sprintf("photo-%d", i)
		}
		opts := fpdf.ImageOptions{ImageType: img.Type}
		p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		p.pdf.ImageOptions(name, photoX, p.y, photoWidth, photoHeight, false, opts, 0, "")

		switch {
		case (i+1)%2 == 0: // row complete
			photoX = g.margin
			p.y += photoHeight + 5
		case i < len(photos)-1: // move to second column
			photoX += photoWidth + 5
		default: // odd trailing photo
			p.y += photoHeight + 5
		}
	}
}

func (g *DetailGenerator) addFollowUps(p *detailPage, insp *domain.Inspection) {
	if len(insp.FollowUps) == 0 {
		return
	}
	p.sectionHeader("Agendamentos de Retorno")
	for _, f := range insp.FollowUps {
		status := "Pendente"
		if f.Completed {
			status = "Concluído"
		}
		p.gridField(
			"DATA: "+domain.FormatDate(f.Date), "Status: "+status,
			"OBSERVAÇÕES", f.Notes,
		)
	}
}

func (g *DetailGenerator) addSignature(p *detailPage) {
	p.y += 20
	p.checkPageBreak(20)

	const lineWidth = 100.0
	lineX := (g.pageWidth - lineWidth) / 2
	p.pdf.SetDrawColor(0, 0, 0)
	p.pdf.Line(lineX, p.y, lineX+lineWidth, p.y)
	p.y += 5

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(0, 0, 0)
	p.centeredText("Fiscal de Obras e Urbanismo")
}

// =============================================================================
// Layout Primitives
// =============================================================================

// detailPage tracks the vertical cursor of the report being emitted.
type detailPage struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	g   *DetailGenerator
	y   float64
}

const footerReserve = 20.0

// addPageWithHeader starts a new page and re-emits the two-line centered
// title block with its separator rule. Every page carries the header,
// including continuation pages after a forced break.
func (p *detailPage) addPageWithHeader() {
	p.pdf.AddPage()
	p.y = p.g.margin

	p.pdf.SetFont("Helvetica", "B", 14)
	p.pdf.SetTextColor(0, 0, 0)
	p.centeredText("GERÊNCIA DE FISCALIZAÇÃO DE OBRAS")
	p.y += 8

	p.pdf.SetFont("Helvetica", "", 12)
	p.centeredText("RELATÓRIO DE FISCALIZAÇÃO")
	p.y += 8

	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.Line(p.g.margin, p.y, p.g.pageWidth-p.g.margin, p.y)
	p.y += 10
}

// checkPageBreak starts a new page when the remaining space below the
// cursor cannot fit a block of the given height.
func (p *detailPage) checkPageBreak(needed float64) {
	if p.y+needed > p.g.pageHeight-footerReserve {
		p.addPageWithHeader()
	}
}

// sectionHeader emits a filled label bar.
func (p *detailPage) sectionHeader(title string) {
	p.checkPageBreak(15)
	p.y += 5

	p.pdf.SetFont("Helvetica", "B", 12)
	p.pdf.SetFillColor(243, 244, 246)
	p.pdf.Rect(p.g.margin, p.y, p.g.contentWidth, 8, "F")
	p.pdf.SetTextColor(55, 65, 81)
	p.pdf.Text(p.g.margin+3, p.y+6, p.tr(title))
	p.y += 12
}

// gridField emits two label+value pairs side by side. Each value wraps
// independently to its column width; the row advances by the taller of the
// two wrapped heights.
func (p *detailPage) gridField(label1, value1, label2, value2 string) {
	p.checkPageBreak(15)

	col1X := p.g.margin
	col2X := p.g.margin + p.g.contentWidth/2 + 5
	colWidth := p.g.contentWidth/2 - 5

	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(107, 114, 128)
	p.pdf.Text(col1X, p.y, p.tr(label1))
	p.pdf.Text(col2X, p.y, p.tr(label2))

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(0, 0, 0)

	lines1 := p.pdf.SplitText(p.tr(value1), colWidth)
	p.drawLines(lines1, col1X, p.y+4)

	lines2 := p.pdf.SplitText(p.tr(value2), colWidth)
	p.drawLines(lines2, col2X, p.y+4)

	taller := len(lines1)
	if len(lines2) > taller {
		taller = len(lines2)
	}
	p.y += float64(taller)*4 + 4
}

// fullWidthField emits a label over a wrapped full-width value. Blank
// values produce no output at all, not even vertical space.
func (p *detailPage) fullWidthField(label, value string) {
	if isBlank(value) {
		return
	}

	lines := p.pdf.SplitText(p.tr(value), p.g.contentWidth)
	p.checkPageBreak(15 + float64(len(lines))*4)

	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(107, 114, 128)
	p.pdf.Text(p.g.margin, p.y, p.tr(label))

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(0, 0, 0)
	p.drawLines(lines, p.g.margin, p.y+4)
	p.y += float64(len(lines))*4 + 4
}

// bulletedList emits one wrapped, indented line per item.
func (p *detailPage) bulletedList(items []string) {
	if len(items) == 0 {
		return
	}
	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(0, 0, 0)
	for _, item := range items {
		lines := p.pdf.SplitText(p.tr("- "+item), p.g.contentWidth-2)
		p.checkPageBreak(float64(len(lines))*4 + 2)
		p.drawLines(lines, p.g.margin+2, p.y)
		p.y += float64(len(lines))*4 + 1
	}
	p.y += 3
}

// smallLabel emits a bare muted caption above content the other
// primitives do not label themselves.
func (p *detailPage) smallLabel(text string) {
	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(107, 114, 128)
	p.pdf.Text(p.g.margin, p.y, p.tr(text))
	p.y += 4
}

// addPageNumbers stamps "Página i de N" on every page already emitted.
// Runs after all content so the total is known.
func (p *detailPage) addPageNumbers() {
	total := p.pdf.PageCount()
	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(150, 150, 150)
	for i := 1; i <= total; i++ {
		p.pdf.SetPage(i)
		text := p.tr(fmt.Sprintf("Página %d de %d", i, total))
		width := p.pdf.GetStringWidth(text)
		p.pdf.Text(p.g.pageWidth-p.g.margin-width, p.g.pageHeight-10, text)
	}
}

func (p *detailPage) drawLines(lines []string, x, y float64) {
	for _, line := range lines {
		p.pdf.Text(x, y, line)
		y += 4
	}
}

func (p *detailPage) centeredText(text string) {
	t := p.tr(text)
	width := p.pdf.GetStringWidth(t)
	p.pdf.Text((p.g.pageWidth-width)/2, p.y, t)
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
