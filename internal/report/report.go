// Package report renders the money collection report as a PDF.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"moi-note/internal/domain"
)

const (
	margin     = 15.0
	rowHeight  = 7.0
	dateLayout = "02/01/2006"
)

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"S.No", 12, "C"},
	{"Guest Name", 40, "L"},
	{"Address", 45, "L"},
	{"Amount", 28, "R"},
	{"Entered By", enteredByWidth, "L"},
	{"Date", 22, "C"},
}

// enteredByWidth fills the remainder of an A4 portrait page.
const enteredByWidth = 210 - 2*margin - 12 - 40 - 45 - 28 - 22

// Filename is the download name of the report for an event.
func Filename(event domain.EventMetadata) string {
	name := strings.TrimSpace(event.Name)
	if name == "" {
		name = "Event"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + "_Report.pdf"
}

// Render writes the report for entries, which are listed in the order given.
// Dates are shown in loc; nil means UTC.
func Render(w io.Writer, event domain.EventMetadata, entries []domain.MoneyEntry, generatedAt time.Time, loc *time.Location) error {
	pdf, err := build(event, entries, generatedAt, loc)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func build(event domain.EventMetadata, entries []domain.MoneyEntry, generatedAt time.Time, loc *time.Location) (*fpdf.Fpdf, error) {
	if loc == nil {
		loc = time.UTC
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(event.Name+" - Money Collection Report", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, tr(event.Name+" - Money Collection Report"), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Date: " + event.Date,
		"Host: " + event.HostName,
		"Generated on: " + generatedAt.In(loc).Format(dateLayout),
	} {
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - margin

	header(pdf)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)

	total := decimal.Zero
	for i, entry := range entries {
		if pdf.GetY()+rowHeight > bottom {
			pdf.AddPage()
			header(pdf)
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(0, 0, 0)
		}
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 250)
		cells := []string{
			strconv.Itoa(i + 1),
			entry.GuestName,
			entry.Address,
			FormatAmount(entry.Amount),
			entry.EnteredBy,
			entry.Timestamp.In(loc).Format(dateLayout),
		}
		for c, text := range cells {
			col := columns[c]
			pdf.CellFormat(col.width, rowHeight, fit(pdf, tr(text), col.width-2), "1", 0, col.align, fill, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(entry.Amount)
	}

	if pdf.GetY()+30 > bottom {
		pdf.AddPage()
	}
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, "Total Amount: "+FormatAmount(total), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 9, fmt.Sprintf("Total Entries: %d", len(entries)), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return pdf, nil
}

func header(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(102, 126, 234)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range columns {
		pdf.CellFormat(col.width, rowHeight+1, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// fit truncates text with an ellipsis so it stays inside width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}

// FormatAmount renders an amount as rupees with thousands separators, e.g. "Rs. 12,500.50".
func FormatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac == "00" {
		return "Rs. " + sign + b.String()
	}
	return "Rs. " + sign + b.String() + "." + frac
}
