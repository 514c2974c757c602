package document

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/xuri/excelize/v2"
)

// oleMagic starts every OLE2 compound file, which is how BIFF .xls
// workbooks are stored.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// IsLegacyWorkbook reports whether r starts like a BIFF (.xls) workbook.
// Only the first eight bytes are read.
func IsLegacyWorkbook(r io.Reader) bool {
	head := make([]byte, len(oleMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return false
	}
	return bytes.Equal(head, oleMagic)
}

func isLegacyWorkbookFile(path string) bool {
	f, err := os.Open(path) //nolint:gosec // G304: caller supplies the document path
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	return IsLegacyWorkbook(f)
}

func extractXLSX(path string) (Result, error) {
	if isLegacyWorkbookFile(path) {
		return Result{}, docerr.New(docerr.CodeDocumentProcessing, "xlsx",
			"Legacy .xls workbooks are not supported, save the file as .xlsx")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "xlsx", err, "Failed to extract data from Excel")
	}
	defer func() { _ = f.Close() }()

	var (
		sheets []Sheet
		text   strings.Builder
		rows   int
	)
	for _, name := range f.GetSheetList() {
		raw, err := f.GetRows(name)
		if err != nil {
			return Result{}, docerr.Wrapf(docerr.CodeDocumentProcessing, "xlsx", err,
				"Failed to extract data from Excel sheet %q", name)
		}
		sheet := Sheet{Name: name, Rows: sheetRows(raw)}
		sheets = append(sheets, sheet)
		rows += len(sheet.Rows)
		writeSheetText(&text, name, raw)
	}

	if rows == 0 {
		return Result{}, docerr.New(docerr.CodeDocumentProcessing, "xlsx", "No data found in Excel file")
	}
	return Result{Text: strings.TrimSpace(text.String()), Sheets: sheets}, nil
}

// sheetRows keys every data row by the header row. Blank header cells are
// named __EMPTY, __EMPTY_1, ... and duplicate headers get a _1, _2 suffix.
// Rows without any value are skipped.
func sheetRows(raw [][]string) []map[string]string {
	if len(raw) < 2 {
		return []map[string]string{}
	}
	headers := headerKeys(raw[0])

	out := make([]map[string]string, 0, len(raw)-1)
	for _, r := range raw[1:] {
		row := make(map[string]string, len(r))
		for i, cell := range r {
			if cell == "" {
				continue
			}
			row[headerAt(headers, i)] = cell
		}
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	seen := make(map[string]int, len(header))
	empty := 0
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "__EMPTY"
			if empty > 0 {
				h += "_" + strconv.Itoa(empty)
			}
			empty++
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h += "_" + strconv.Itoa(n)
		} else {
			seen[h] = 1
		}
		keys[i] = h
	}
	return keys
}

// headerAt names cells right of the last header cell after their column.
func headerAt(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	col, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return "__COL_" + strconv.Itoa(i+1)
	}
	return "__" + col
}

// writeSheetText renders a sheet as tab-separated lines under its name.
func writeSheetText(b *strings.Builder, name string, raw [][]string) {
	var lines []string
	for _, r := range raw {
		line := strings.TrimRight(strings.Join(r, "\t"), "\t")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(name)
	b.WriteByte('\n')
	b.WriteString(strings.Join(lines, "\n"))
}
