package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cozinhalabs/auditoria/internal/models"
)

var xlsxHeaders = []string{"Data/Hora", "Usuário", "Ação", "Recurso", "IP", "Mudanças"}

// WriteXLSX renders the event set as a single-sheet spreadsheet.
func WriteXLSX(w io.Writer, events []*models.AuditEventRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Auditoria"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F7A4D"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for col, header := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, ev := range events {
		row := i + 2
		values := []any{
			ev.Timestamp.Format(timestampLayout),
			actorLabel(ev),
			ev.Acao,
			ev.Recurso,
			ev.IPAddress,
			formatChanges(ev.Detalhes),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "F", 28); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
