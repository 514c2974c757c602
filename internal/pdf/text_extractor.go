package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/dslipak/pdf"
)

// PageText is the text layer of one page.
type PageText struct {
	PageNumber int
	Text       string
}

// ExtractTextLayer reads the embedded text of every page without OCR.
// Pages that fail to decode yield empty text rather than aborting the
// document; scanned pages simply have no text layer.
func ExtractTextLayer(filename string) ([]PageText, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: caller supplies the document path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}

	total := reader.NumPage()
	pages := make([]PageText, 0, total)
	for n := 1; n <= total; n++ {
		pages = append(pages, PageText{PageNumber: n, Text: pageText(reader.Page(n))})
	}
	return pages, nil
}

func pageText(page pdf.Page) (text string) {
	if page.V.IsNull() {
		return ""
	}
	// The content stream interpreter panics on some malformed operators.
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	plain, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(plain)
}

// JoinPages concatenates page texts with a blank line, skipping empty pages.
func JoinPages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
