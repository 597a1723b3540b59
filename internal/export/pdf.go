package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/cozinhalabs/auditoria/internal/models"
)

// WritePDF renders the event set as a paginated report, one block per event.
func WritePDF(w io.Writer, events []*models.AuditEventRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Relatório de Auditoria", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Gerado em %s — %d eventos", time.Now().Format(timestampLayout), len(events)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, ev := range events {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s  |  %s  |  %s", ev.Timestamp.Format(timestampLayout), ev.Acao, ev.Recurso), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Usuário: %s    IP: %s", actorLabel(ev), ev.IPAddress), "", 1, "L", false, 0, "")

		if changes := formatChanges(ev.Detalhes); changes != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(0, 4, changes, "", "L", false)
		}

		pdf.Ln(2)
		pdf.SetDrawColor(200, 200, 200)
		x, y := pdf.GetXY()
		pdf.Line(x, y, 200, y)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}
