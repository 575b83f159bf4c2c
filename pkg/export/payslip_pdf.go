package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PayslipLine is one salary component row on the slip.
type PayslipLine struct {
	Component string
	Category  string
	Amount    string
}

// PayslipDocument carries everything the PDF renderer needs.
type PayslipDocument struct {
	EmployeeID      string
	EmployeeName    string
	Period          string
	Lines           []PayslipLine
	TotalAllowances string
	TotalDeductions string
	NetSalary       string
}

// PayslipPDFExporter renders an approved salary header into a payslip PDF.
type PayslipPDFExporter struct{}

// NewPayslipPDFExporter constructs a payslip exporter.
func NewPayslipPDFExporter() *PayslipPDFExporter {
	return &PayslipPDFExporter{}
}

// Render produces the payslip document bytes.
func (e *PayslipPDFExporter) Render(doc PayslipDocument) ([]byte, error) {
	if doc.EmployeeID == "" || doc.Period == "" {
		return nil, fmt.Errorf("payslip requires employee and period")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("PAYSLIP %s", doc.Period), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Employee: %s (%s)", doc.EmployeeName, doc.EmployeeID), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Component", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 8, "Category", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 8, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.Lines {
		pdf.CellFormat(90, 7, line.Component, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, line.Category, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, line.Amount, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(140, 7, "Total allowances", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, doc.TotalAllowances, "1", 1, "R", false, 0, "")
	pdf.CellFormat(140, 7, "Total deductions", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, doc.TotalDeductions, "1", 1, "R", false, 0, "")
	pdf.CellFormat(140, 7, "Net salary", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, doc.NetSalary, "1", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render payslip pdf: %w", err)
	}
	return buf.Bytes(), nil
}
