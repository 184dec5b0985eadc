package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/abelbrown/rankscrape/internal/model"
)

// PDFOptions configures the PDF report.
type PDFOptions struct {
	Title    string
	FontPath string // TTF with Hangul glyphs; "" falls back to Helvetica
	Created  time.Time
}

// pdfWidths are millimetres per PDFColumns entry on landscape A4.
var pdfWidths = []float64{120, 30, 65, 27, 35}

const (
	pdfFamily   = "report"
	pdfRowH     = 7.0
	pdfFontSize = 8.0
)

// WritePDF renders items as a landscape table with PDFColumns.
func WritePDF(w io.Writer, items []model.Item, opts PDFOptions) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	if opts.Title == "" {
		opts.Title = "Chart results"
	}
	if opts.Created.IsZero() {
		opts.Created = time.Now()
	}
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator("rankscrape", false)
	pdf.SetCreationDate(opts.Created)
	pdf.SetAutoPageBreak(true, 12)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		pdf.AddUTF8Font(pdfFamily, "", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font %s: %w", opts.FontPath, err)
		}
		family = pdfFamily
		tr = func(s string) string { return s }
	}

	header := func() {
		pdf.SetFont(family, "", pdfFontSize+1)
		pdf.SetFillColor(230, 230, 240)
		for i, c := range PDFColumns {
			pdf.CellFormat(pdfWidths[i], pdfRowH, tr(string(c)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", pdfFontSize)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(family, "", 12)
		pdf.CellFormat(0, 8, tr(opts.Title), "", 1, "L", false, 0, "")
		pdf.SetFont(family, "", pdfFontSize)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%d items, %s", len(items), opts.Created.Format("2006-01-02 15:04"))), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		header()
	})

	pdf.AddPage()
	for _, row := range Rows(items, PDFColumns) {
		for i, v := range row {
			align := "L"
			if PDFColumns[i] != ColTitle && PDFColumns[i] != ColChannel {
				align = "C"
			}
			pdf.CellFormat(pdfWidths[i], pdfRowH, fit(pdf, tr(v), pdfWidths[i]-2), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// fit trims s so it fits width, marking the cut with "..".
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"..") > width {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}
