package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	coreFontFamily = "Arial"
	utf8FontFamily = "roster"
)

// PDFExporter renders datasets into a tabular PDF roster.
type PDFExporter struct {
	orientation string
	utf8Font    []byte
}

// NewPDFExporter constructs a landscape PDF exporter using the built-in core
// font, which only covers cp1252 text.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{orientation: "L"}
}

// NewPDFExporterWithFont constructs an exporter that embeds the TrueType font
// at fontPath, so names outside cp1252 (kana, kanji) render as written.
func NewPDFExporterWithFont(fontPath string) (*PDFExporter, error) {
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read roster font: %w", err)
	}
	if len(font) == 0 {
		return nil, fmt.Errorf("roster font %s is empty", fontPath)
	}
	return &PDFExporter{orientation: "L", utf8Font: font}, nil
}

// PDFDocument describes the header block printed above the table.
type PDFDocument struct {
	Title    string
	Subtitle string
	Footer   string
}

// Render creates a PDF document with a header block and table body.
func (e *PDFExporter) Render(data Dataset, doc PDFDocument) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := gofpdf.New(e.orientation, "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	family := coreFontFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if len(e.utf8Font) > 0 {
		family = utf8FontFamily
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8FontFromBytes(family, style, e.utf8Font)
		}
		tr = func(s string) string { return s }
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	colWidth := usable / float64(len(data.Columns))

	header := func() {
		pdf.SetFont(family, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range data.Columns {
			pdf.CellFormat(colWidth, 8, tr(col.Title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 9)
	}

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	if doc.Footer != "" {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-10)
			pdf.SetFont(family, "I", 8)
			pdf.CellFormat(0, 6, fmt.Sprintf("%s  p.%d", tr(doc.Footer), pdf.PageNo()), "", 0, "R", false, 0, "")
		})
	}

	pdf.AddPage()
	if doc.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont(family, "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	header()

	if len(data.Rows) == 0 {
		pdf.CellFormat(usable, 7, "-", "1", 1, "C", false, 0, "")
	}
	for _, row := range data.Rows {
		for _, col := range data.Columns {
			pdf.CellFormat(colWidth, 7, tr(row[col.Key]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
