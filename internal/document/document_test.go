package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireDocErr(t *testing.T, err error, message string) {
	t.Helper()
	var de *docerr.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, docerr.CodeDocumentProcessing, de.Code)
	if message != "" {
		assert.Equal(t, message, de.Message)
	}
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"docx", "XLSX", " pdf "} {
		k, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Contains(t, Kinds, k)
	}
	_, err := ParseKind("odt")
	require.Error(t, err)
}

func TestKindFromExtension(t *testing.T) {
	k, ok := KindFromExtension("a/b/Report.DOCX")
	assert.True(t, ok)
	assert.Equal(t, KindDOCX, k)

	k, ok = KindFromExtension("sheet.xlsx")
	assert.True(t, ok)
	assert.Equal(t, KindXLSX, k)

	_, ok = KindFromExtension("scan.png")
	assert.False(t, ok)
}

func TestExtract_DOCX(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDOCX(t, dir, "letter.docx", "Dear reader,", "", "Name\tValue", "  Regards  ")

	res, err := NewExtractor().Extract(context.Background(), path, KindDOCX)
	require.NoError(t, err)
	assert.Equal(t, KindDOCX, res.Kind)
	assert.Equal(t, "Dear reader,\n\n\n\nName\tValue\n\n  Regards", res.Text)
	assert.Empty(t, res.Sheets)
}

func TestExtract_DOCXErrors(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor()

	empty := testutil.WriteDOCX(t, dir, "empty.docx", "", "   ")
	_, err := e.Extract(context.Background(), empty, KindDOCX)
	requireDocErr(t, err, "No text found in document")

	notZip := filepath.Join(dir, "bad.docx")
	require.NoError(t, os.WriteFile(notZip, []byte("plain text"), 0o600))
	_, err = e.Extract(context.Background(), notZip, KindDOCX)
	requireDocErr(t, err, "Failed to extract text from DOCX")

	_, err = e.Extract(context.Background(), filepath.Join(dir, "missing.docx"), KindDOCX)
	requireDocErr(t, err, "")
}

func TestReadParagraphs_BreaksAndForeignElements(t *testing.T) {
	doc := `<w:document xmlns:w="` + wNS + `" xmlns:m="urn:other"><w:body>` +
		`<w:p><w:r><w:t>one</w:t><w:br/><w:t>two</w:t></w:r><m:t>skip</m:t></w:p>` +
		`<w:p><w:r><w:t>three</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	got, err := readParagraphs(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"one\ntwo", "three"}, got)

	_, err = readParagraphs(strings.NewReader("<w:document"))
	require.Error(t, err)
}

func TestExtract_XLSX(t *testing.T) {
	path := testutil.WriteXLSX(t, t.TempDir(), "book.xlsx",
		testutil.SheetData{Name: "People", Rows: [][]any{
			{"Name", "Age", "City"},
			{"Ann", 34, "Oslo"},
			{"Bob", nil, "Rome"},
			{nil, nil, nil},
		}},
		testutil.SheetData{Name: "Notes"},
	)

	res, err := NewExtractor().Extract(context.Background(), path, KindXLSX)
	require.NoError(t, err)
	require.Len(t, res.Sheets, 2)

	people := res.Sheets[0]
	assert.Equal(t, "People", people.Name)
	assert.Equal(t, []map[string]string{
		{"Name": "Ann", "Age": "34", "City": "Oslo"},
		{"Name": "Bob", "City": "Rome"},
	}, people.Rows)
	assert.Equal(t, "Notes", res.Sheets[1].Name)
	assert.Empty(t, res.Sheets[1].Rows)

	assert.True(t, strings.HasPrefix(res.Text, "People\nName\tAge\tCity\nAnn\t34\tOslo"), res.Text)
}

func TestExtract_XLSXEmptyWorkbook(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor()

	empty := testutil.WriteXLSX(t, dir, "empty.xlsx")
	_, err := e.Extract(context.Background(), empty, KindXLSX)
	requireDocErr(t, err, "No data found in Excel file")

	headerOnly := testutil.WriteXLSX(t, dir, "header.xlsx", testutil.SheetData{
		Name: "S", Rows: [][]any{{"A", "B"}},
	})
	_, err = e.Extract(context.Background(), headerOnly, KindXLSX)
	requireDocErr(t, err, "No data found in Excel file")
}

func TestExtract_LegacyWorkbook(t *testing.T) {
	dir := t.TempDir()
	xls := filepath.Join(dir, "report.xls")
	biff := append(append([]byte(nil), oleMagic...), make([]byte, 504)...)
	require.NoError(t, os.WriteFile(xls, biff, 0o600))

	_, err := NewExtractor().Extract(context.Background(), xls, KindXLSX)
	requireDocErr(t, err, "Legacy .xls workbooks are not supported, save the file as .xlsx")

	assert.True(t, IsLegacyWorkbook(strings.NewReader(string(biff))))
	assert.False(t, IsLegacyWorkbook(strings.NewReader("PK\x03\x04")))
	assert.False(t, IsLegacyWorkbook(strings.NewReader("")))
}

func TestHeaderKeys(t *testing.T) {
	assert.Equal(t,
		[]string{"a", "__EMPTY", "a_1", "__EMPTY_1", "b"},
		headerKeys([]string{"a", "", "a", " ", "b"}))
}

func TestSheetRows_ExtraColumns(t *testing.T) {
	rows := sheetRows([][]string{{"k"}, {"v", "", "x"}})
	assert.Equal(t, []map[string]string{{"k": "v", "__C": "x"}}, rows)
}

func TestExtract_PDFTextLayer(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor()

	path := testutil.WritePDF(t, dir, "report.pdf", testutil.SamplePage1, testutil.SamplePage2)
	res, err := e.Extract(context.Background(), path, KindPDF)
	require.NoError(t, err)
	assert.Contains(t, res.Text, testutil.SamplePage1)
	assert.Contains(t, res.Text, testutil.SamplePage2)
	assert.Less(t, strings.Index(res.Text, testutil.SamplePage1), strings.Index(res.Text, testutil.SamplePage2))

	blank := testutil.WritePDF(t, dir, "blank.pdf", "")
	_, err = e.Extract(context.Background(), blank, KindPDF)
	requireDocErr(t, err, "No text found in PDF")
}

func TestExtract_UnknownKindAndCancel(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), "x", Kind("odt"))
	requireDocErr(t, err, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Extract(ctx, "x", KindDOCX)
	assert.ErrorIs(t, err, context.Canceled)
}
