package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// utf8BOM lets spreadsheet software detect UTF-8 when opening the file.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Column maps a dataset key to the header shown in the file.
type Column struct {
	Key   string
	Title string
}

// Dataset defines tabular export content.
type Dataset struct {
	Columns []Column
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct {
	bom  bool
	crlf bool
}

// NewCSVExporter builds a CSV exporter producing BOM-prefixed, CRLF-terminated output.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{bom: true, crlf: true}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	if e.bom {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = e.crlf

	header := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		header[i] = col.Title
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Columns))
		for i, col := range data.Columns {
			record[i] = SanitizeCell(row[col.Key])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// SanitizeCell flattens line breaks and neutralises values a spreadsheet
// would evaluate as a formula.
func SanitizeCell(value string) string {
	if value == "" {
		return value
	}
	value = lineBreaks.Replace(value)
	trimmed := strings.TrimLeft(value, " \t")
	if trimmed == "" {
		return value
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + value
	}
	return value
}
