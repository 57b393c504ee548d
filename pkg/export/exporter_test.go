package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterWritesBOMAndCRLF(t *testing.T) {
	data := Dataset{
		Columns: []Column{{Key: "name", Title: "Guardian"}, {Key: "date", Title: "Date"}},
		Rows:    []map[string]string{{"name": "Sato", "date": "2025-03-03"}},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "Guardian,Date\r\nSato,2025-03-03\r\n", string(out[3:]))
}

func TestCSVExporterGuardsFormulaCells(t *testing.T) {
	data := Dataset{
		Columns: []Column{{Key: "note", Title: "Note"}},
		Rows: []map[string]string{
			{"note": "=HYPERLINK(\"x\")"},
			{"note": "+81 90"},
			{"note": "plain"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	body := string(out[3:])

	assert.Contains(t, body, "\"'=HYPERLINK(\"\"x\"\")\"")
	assert.Contains(t, body, "'+81 90")
	assert.Contains(t, body, "\r\nplain\r\n")
}

func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, "'-1", SanitizeCell("-1"))
	assert.Equal(t, "'@SUM(A1)", SanitizeCell("@SUM(A1)"))
	assert.Equal(t, "' =1", SanitizeCell(" =1"))
	assert.Equal(t, "abc", SanitizeCell("abc"))
	assert.Equal(t, "", SanitizeCell(""))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)

	_, err = NewPDFExporter().Render(Dataset{}, PDFDocument{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	data := Dataset{
		Columns: []Column{{Key: "time", Title: "Time"}, {Key: "child", Title: "Child"}},
		Rows:    []map[string]string{{"time": "08:30", "child": "Hana"}},
	}

	out, err := NewPDFExporter().Render(data, PDFDocument{Title: "Roster 2025-03-03", Footer: "childcare"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestSanitizeCellFlattensLineBreaks(t *testing.T) {
	assert.Equal(t, "line one line two", SanitizeCell("line one\r\nline two"))
	assert.Equal(t, "'=a b", SanitizeCell("=a\nb"))
}

func TestNewPDFExporterWithFontRejectsMissingFile(t *testing.T) {
	_, err := NewPDFExporterWithFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.ttf")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = NewPDFExporterWithFont(empty)
	assert.Error(t, err)
}

func TestPDFExporterEmbedsUTF8Font(t *testing.T) {
	font := findTestFont(t)
	exporter, err := NewPDFExporterWithFont(font)
	require.NoError(t, err)

	data := Dataset{
		Columns: []Column{{Key: "time", Title: "時間"}, {Key: "child", Title: "園児"}},
		Rows:    []map[string]string{{"time": "08:30", "child": "Müller Hana"}},
	}
	out, err := exporter.Render(data, PDFDocument{Title: "Roster 2025-03-03", Footer: "childcare"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Contains(t, string(out), "FontFile2")
}

// findTestFont locates a TrueType font; ROSTER_TEST_FONT wins, otherwise the
// fonts shipped with gofpdf in the module cache are used.
func findTestFont(t *testing.T) string {
	t.Helper()
	if path := os.Getenv("ROSTER_TEST_FONT"); path != "" {
		return path
	}
	modCache := os.Getenv("GOMODCACHE")
	if modCache == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no module cache to find a test font")
		}
		modCache = filepath.Join(home, "go", "pkg", "mod")
	}
	matches, _ := filepath.Glob(filepath.Join(modCache, "github.com", "jung-kurt", "gofpdf@*", "font", "DejaVuSansCondensed.ttf"))
	if len(matches) == 0 {
		t.Skip("no TrueType font available")
	}
	return matches[0]
}
