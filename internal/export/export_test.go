package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

func testInspection() *domain.Inspection {
	return &domain.Inspection{
		Protocol:      "2024-007",
		Source:        domain.SourceOmbudsman,
		Type:          domain.TypeWorkOffProject,
		Status:        domain.StatusInProgress,
		Address:       `Rua A, "Centro"`,
		Inspector:     "Carlos Lima",
		ComplaintDate: "2024-03-10",
		CreatedAt:     time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC),
		Actions: []domain.InspectionAction{
			domain.ActionNotification,
			domain.ActionEmbargo,
		},
	}
}

func TestEscapeCell(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Rua das Flores", "Rua das Flores"},
		{"comma", "Rua A, 123", `"Rua A, 123"`},
		{"quote", `Bairro "Novo"`, `"Bairro ""Novo"""`},
		{"comma and quote", `Rua A, "Centro"`, `"Rua A, ""Centro"""`},
		{"newline", "linha1\nlinha2", "\"linha1\nlinha2\""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeCell(tt.in))
		})
	}
}

func TestRowColumnContract(t *testing.T) {
	row := Row(testInspection())
	require.Len(t, row, len(Labels))

	assert.Equal(t, "2024-007", row[0])
	assert.Equal(t, `Rua A, "Centro"`, row[1])
	assert.Equal(t, "N/A", row[2], "empty reference point renders as N/A")
	assert.Equal(t, "Obra em desacordo com projeto aprovado", row[3])
	assert.Equal(t, "Em Andamento", row[4])
	assert.Equal(t, "10/03/2024", row[5])
	assert.Equal(t, "12/03/2024", row[6])
	assert.Equal(t, "Carlos Lima", row[7])
	assert.Equal(t, "Notificação, Embargo", row[8])
}

func TestRowOptionalFallbacks(t *testing.T) {
	insp := testInspection()
	insp.Address = ""
	insp.Inspector = ""
	insp.ComplaintDate = ""
	insp.Actions = nil

	row := Row(insp)
	assert.Equal(t, "N/A", row[1])
	assert.Equal(t, "N/A", row[5])
	assert.Equal(t, "N/A", row[7])
	assert.Equal(t, "N/A", row[8])
}

func TestFilter(t *testing.T) {
	a := testInspection()
	b := testInspection()
	b.Protocol = "2024-008"
	b.Address = "Avenida Brasil"
	b.Status = domain.StatusClosed
	all := []*domain.Inspection{a, b}

	t.Run("empty query matches all", func(t *testing.T) {
		assert.Len(t, Filter(all, "", nil), 2)
	})

	t.Run("text matches protocol case-insensitively", func(t *testing.T) {
		got := Filter(all, "2024-008", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "2024-008", got[0].Protocol)
	})

	t.Run("text matches address", func(t *testing.T) {
		got := Filter(all, "avenida", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "2024-008", got[0].Protocol)
	})

	t.Run("status filter", func(t *testing.T) {
		status := domain.StatusClosed
		got := Filter(all, "", &status)
		require.Len(t, got, 1)
		assert.Equal(t, "2024-008", got[0].Protocol)
	})

	t.Run("text and status combined", func(t *testing.T) {
		status := domain.StatusClosed
		assert.Empty(t, Filter(all, "2024-007", &status))
	})
}

func TestFilterByDateRangeInclusive(t *testing.T) {
	mk := func(protocol string, createdAt time.Time) *domain.Inspection {
		i := testInspection()
		i.Protocol = protocol
		i.CreatedAt = createdAt
		return i
	}

	all := []*domain.Inspection{
		mk("start", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		mk("lastSecond", time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)),
		mk("nextDay", time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)),
	}

	got, err := FilterByDateRange(all, "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "start", got[0].Protocol)
	assert.Equal(t, "lastSecond", got[1].Protocol, "end date covers the whole final day")

	_, err = FilterByDateRange(all, "01/01/2024", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestFormatMetadata(t *testing.T) {
	tests := []struct {
		format      Format
		contentType string
		filename    string
	}{
		{FormatPDF, "application/pdf", "relatorio_chamados.pdf"},
		{FormatCSV, "text/csv; charset=utf-8", "relatorio_chamados.csv"},
		{FormatXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "relatorio_chamados.xlsx"},
		{FormatDOC, "application/msword", "relatorio_chamados.doc"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.True(t, tt.format.IsValid())
			assert.Equal(t, tt.contentType, tt.format.ContentType())
			assert.Equal(t, tt.filename, tt.format.Filename())
		})
	}

	assert.False(t, Format("odt").IsValid())
}

func TestNewGenerator(t *testing.T) {
	for _, f := range AllFormats {
		gen, err := NewGenerator(f)
		require.NoError(t, err)
		assert.Equal(t, f, gen.Format())
	}

	_, err := NewGenerator(Format("odt"))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCSVGenerate(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewCSVGenerator().Generate(context.Background(), []*domain.Inspection{testInspection()}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Labels, ","), lines[0])
	assert.Equal(t,
		`2024-007,"Rua A, ""Centro""",N/A,Obra em desacordo com projeto aprovado,Em Andamento,10/03/2024,12/03/2024,Carlos Lima,"Notificação, Embargo"`,
		lines[1])
}

func TestXLSXGenerateMatchesColumnContract(t *testing.T) {
	insp := testInspection()

	var buf bytes.Buffer
	_, err := NewXLSXGenerator().Generate(context.Background(), []*domain.Inspection{insp}, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Labels, rows[0])
	assert.Equal(t, Row(insp), rows[1])
}

func TestDOCGenerate(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewDOCGenerator().Generate(context.Background(), []*domain.Inspection{testInspection()}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "starts with a BOM")
	assert.Contains(t, out, "urn:schemas-microsoft-com:office:word")
	for _, label := range Labels {
		assert.Contains(t, out, "<th>"+label+"</th>")
	}
	assert.Contains(t, out, "<td>2024-007</td>")
	assert.Contains(t, out, "<td>Notificação, Embargo</td>")
}

func TestListPDFGenerate(t *testing.T) {
	cases := make([]*domain.Inspection, 0, 40)
	for i := 0; i < 40; i++ {
		insp := testInspection()
		insp.Description = strings.Repeat("Construção irregular observada no local. ", 3)
		cases = append(cases, insp)
	}

	var buf bytes.Buffer
	n, err := NewListPDFGenerator().Generate(context.Background(), cases, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is a PDF document")
}
