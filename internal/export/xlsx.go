package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
)

// =============================================================================
// XLSX Generator
// =============================================================================

// SheetName is the single worksheet holding the exported cases.
const SheetName = "Chamados"

// XLSXGenerator renders the list export as a spreadsheet workbook.
type XLSXGenerator struct{}

// NewXLSXGenerator creates a new spreadsheet generator.
func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Format returns the output format of this generator.
func (g *XLSXGenerator) Format() Format {
	return FormatXLSX
}

// Generate renders the given cases and writes the file to w.
func (g *XLSXGenerator) Generate(ctx context.Context, inspections []*domain.Inspection, w io.Writer) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("rename worksheet: %w", err)
	}

	if err := writeSheetRow(f, 1, Labels); err != nil {
		return 0, err
	}
	for ri, row := range Rows(inspections) {
		if err := writeSheetRow(f, ri+2, row); err != nil {
			return 0, err
		}
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("write workbook: %w", err)
	}
	metrics.ExportsGenerated.WithLabelValues(string(FormatXLSX)).Inc()
	return n, nil
}

func writeSheetRow(f *excelize.File, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell coordinates: %w", err)
	}
	values := make([]interface{}, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
