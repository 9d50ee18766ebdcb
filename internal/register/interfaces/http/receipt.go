package http

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	register "clinic-register/internal/register/domain"
)

// BuildReceiptPDF renders a printable receipt for a consultation. The
// sequence number is the patient's call number for regular consultations.
func BuildReceiptPDF(consultation *register.Consultation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Consultation Receipt")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if seq, ok := consultation.SequenceNumber(); ok {
		pdf.SetFont("Arial", "B", 22)
		pdf.Cell(0, 10, fmt.Sprintf("No. %d", seq))
		pdf.Ln(12)
		pdf.SetFont("Arial", "", 10)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", consultation.DayStart().Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Category: %s", consultation.Category()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Payment: %s", consultation.Channel()))
	pdf.Ln(5)
	if cancellation, ok := consultation.Cancellation(); ok {
		pdf.Cell(0, 6, fmt.Sprintf("CANCELLED: %s", cancellation.Reason))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Service", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range consultation.LineItems() {
		pdf.CellFormat(80, 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, item.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	for _, fee := range consultation.AdjunctFees() {
		pdf.CellFormat(80, 6, fee.Name+" (fee)", "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fee.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, consultation.Total().StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
