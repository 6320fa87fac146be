// Package pdf renders the monthly report as a PDF document.
package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/report"
)

const (
	font      = "Helvetica"
	rowHeight = 6.0

	colDate     = 40.0
	colCategory = 90.0
	colAmount   = 50.0

	// The core fonts have no rupee glyph.
	currency = "Rs. "
)

// Renderer implements report.Renderer.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (*Renderer) ContentType() string {
	return "application/pdf"
}

// Render writes the document to w. Nothing is written when layout fails,
// because fpdf buffers the whole document until Output.
func (*Renderer) Render(w io.Writer, r *report.MonthlyReport) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(18, 18, 18)
	doc.SetAutoPageBreak(true, 18)
	doc.SetTitle(r.Title(), true)
	doc.SetCreator("BudgetTracker", true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFooterFunc(func() {
		doc.SetY(-14)
		doc.SetFont(font, "", 8)
		doc.SetTextColor(128, 128, 128)
		doc.CellFormat(0, 5, fmt.Sprintf("Generated on %s - page %d", r.GeneratedAt.Format("02 Jan 2006 15:04"), doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	header(doc, tr, r)
	overview(doc, r)
	warning(doc, r.Warning)
	transactions(doc, tr, r)

	if err := doc.Error(); err != nil {
		return fmt.Errorf("failed to lay out report: %w", err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func header(doc *fpdf.Fpdf, tr func(string) string, r *report.MonthlyReport) {
	doc.SetFont(font, "B", 20)
	doc.SetTextColor(17, 24, 39)
	doc.CellFormat(0, 10, "Budget Tracker", "", 1, "C", false, 0, "")

	doc.SetFont(font, "", 14)
	doc.SetTextColor(128, 128, 128)
	doc.CellFormat(0, 8, tr(r.Title()), "", 1, "C", false, 0, "")
	doc.Ln(10)
}

func overview(doc *fpdf.Fpdf, r *report.MonthlyReport) {
	sectionTitle(doc, "Overview")

	doc.SetFont(font, "", 12)
	lines := []string{
		"Monthly Budget: " + money(r.Budget),
		"Total Expenses: " + money(r.Spent),
		"Remaining Budget: " + money(r.Remaining),
		"Budget Usage: " + r.PercentageUsed.StringFixed(2) + "%",
	}
	for _, l := range lines {
		doc.CellFormat(0, 7, l, "", 1, "L", false, 0, "")
	}
	doc.Ln(6)
}

func warning(doc *fpdf.Fpdf, level report.WarningLevel) {
	var text string
	switch level {
	case report.WarningExceeded:
		doc.SetTextColor(220, 38, 38)
		text = "You have exceeded your monthly budget!"
	case report.WarningNear:
		doc.SetTextColor(217, 119, 6)
		text = "Warning: You have used more than 80% of your budget."
	default:
		return
	}
	doc.SetFont(font, "B", 12)
	doc.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(4)
}

func transactions(doc *fpdf.Fpdf, tr func(string) string, r *report.MonthlyReport) {
	sectionTitle(doc, "Transactions")

	if len(r.Transactions) == 0 {
		doc.SetFont(font, "", 12)
		doc.CellFormat(0, 7, "No expenses recorded for this period.", "", 1, "L", false, 0, "")
		return
	}

	tableHeader(doc)
	_, pageHeight := doc.GetPageSize()
	_, _, _, bottom := doc.GetMargins()

	doc.SetFont(font, "", 10)
	for _, tx := range r.Transactions {
		if doc.GetY()+rowHeight > pageHeight-bottom {
			doc.AddPage()
			tableHeader(doc)
			doc.SetFont(font, "", 10)
		}
		category := tx.Category
		if category == "" {
			category = "-"
		}
		doc.CellFormat(colDate, rowHeight, tx.Date.Format("02 Jan 2006"), "", 0, "L", false, 0, "")
		doc.CellFormat(colCategory, rowHeight, tr(category), "", 0, "L", false, 0, "")
		doc.CellFormat(colAmount, rowHeight, money(tx.Amount), "", 1, "R", false, 0, "")
	}
}

func tableHeader(doc *fpdf.Fpdf) {
	doc.SetFont(font, "B", 11)
	doc.SetFillColor(243, 244, 246)
	doc.CellFormat(colDate, 7, "Date", "B", 0, "L", true, 0, "")
	doc.CellFormat(colCategory, 7, "Category", "B", 0, "L", true, 0, "")
	doc.CellFormat(colAmount, 7, "Amount", "B", 1, "R", true, 0, "")
}

func sectionTitle(doc *fpdf.Fpdf, title string) {
	doc.SetFont(font, "BU", 14)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	doc.Ln(2)
}

func money(d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}
