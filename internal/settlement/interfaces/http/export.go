package http

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	register "clinic-register/internal/register/domain"
	settlement "clinic-register/internal/settlement/domain"
)

// BuildReportPDF renders the daily settlement as a PDF. Regular and mobile
// revenue appear as separate sections.
func BuildReportPDF(report *settlement.Report, clinicName, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Daily Settlement")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	if clinicName != "" {
		pdf.Cell(0, 6, clinicName)
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", report.DayStart.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("State: %s", report.State))
	pdf.Ln(8)

	writeBreakdown := func(title string, breakdown register.Breakdown) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, title)
		pdf.Ln(7)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 6, "Channel", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Count", "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("Sum (%s)", currency), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, channel := range register.Channels() {
			total := breakdown[channel]
			pdf.CellFormat(50, 6, string(channel), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", total.Count), "1", 0, "R", false, 0, "")
			pdf.CellFormat(50, 6, total.Sum.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 6, "Total", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", breakdown.Count()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, breakdown.Sum().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(10)
	}

	writeBreakdown("Regular Revenue", report.Regular)
	writeBreakdown("Mobile Clinic Revenue", report.Mobile)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Expenses (%s): %s", currency, report.ExpenseTotal.StringFixed(2)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Reconciliation")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Bucket", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Expected", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Counted", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Difference", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	if len(report.Results) > 0 {
		for _, result := range report.Results {
			pdf.CellFormat(40, 6, string(result.Bucket), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, result.Expected.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, result.Counted.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, result.Difference.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, string(result.Status), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Overall: %s", report.Overall))
		pdf.Ln(6)
	} else {
		for _, bucket := range settlement.Buckets() {
			pdf.CellFormat(40, 6, string(bucket), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, report.Expected.Bucket(bucket).StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, "-", "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, "-", "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, "-", "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}

	if report.Record != nil {
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(0, 5, fmt.Sprintf("Record %s v%d, closed by %s at %s",
			report.Record.ID, report.Record.Version, report.Record.ClosedBy,
			report.Record.ClosedAt.Format("2006-01-02 15:04")))
		pdf.Ln(4)
		if report.Record.Observations != "" {
			pdf.Cell(0, 5, fmt.Sprintf("Observations: %s", report.Record.Observations))
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders the daily settlement as a workbook with a summary
// sheet and one revenue sheet per category.
func BuildReportXLSX(report *settlement.Report, clinicName, currency string) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	regularSheet := "regular"
	mobileSheet := "mobile"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(regularSheet)
	f.NewSheet(mobileSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Daily Settlement")
	_ = f.SetCellValue(summarySheet, "A2", clinicName)
	_ = f.SetCellValue(summarySheet, "A4", "Date")
	_ = f.SetCellValue(summarySheet, "B4", report.DayStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "State")
	_ = f.SetCellValue(summarySheet, "B5", string(report.State))
	_ = f.SetCellValue(summarySheet, "A6", "Currency")
	_ = f.SetCellValue(summarySheet, "B6", currency)
	_ = f.SetCellValue(summarySheet, "A7", "Expenses")
	_ = f.SetCellValue(summarySheet, "B7", report.ExpenseTotal.StringFixed(2))

	_ = f.SetCellValue(summarySheet, "A9", "Bucket")
	_ = f.SetCellValue(summarySheet, "B9", "Expected")
	_ = f.SetCellValue(summarySheet, "C9", "Counted")
	_ = f.SetCellValue(summarySheet, "D9", "Difference")
	_ = f.SetCellValue(summarySheet, "E9", "Status")
	row := 10
	if len(report.Results) > 0 {
		for _, result := range report.Results {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(result.Bucket))
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), result.Expected.StringFixed(2))
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), result.Counted.StringFixed(2))
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), result.Difference.StringFixed(2))
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), string(result.Status))
			row++
		}
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Overall")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), string(report.Overall))
	} else {
		for _, bucket := range settlement.Buckets() {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(bucket))
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.Expected.Bucket(bucket).StringFixed(2))
			row++
		}
	}
	if report.Record != nil {
		row += 2
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Closed By")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.Record.ClosedBy)
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Closed At")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.Record.ClosedAt.Format("2006-01-02 15:04"))
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Observations")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.Record.Observations)
	}

	writeBreakdown := func(sheet string, breakdown register.Breakdown) {
		_ = f.SetCellValue(sheet, "A1", "Channel")
		_ = f.SetCellValue(sheet, "B1", "Count")
		_ = f.SetCellValue(sheet, "C1", "Sum")
		row := 2
		for _, channel := range register.Channels() {
			total := breakdown[channel]
			_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(channel))
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), total.Count)
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), total.Sum.StringFixed(2))
			row++
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), breakdown.Count())
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), breakdown.Sum().StringFixed(2))
	}
	writeBreakdown(regularSheet, report.Regular)
	writeBreakdown(mobileSheet, report.Mobile)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
