package document

import (
	"strings"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pdf"
)

// extractPDFText reads the embedded text layer. Scanned PDFs have none and
// belong to the OCR lane instead.
func extractPDFText(path string) (Result, error) {
	pages, err := pdf.ExtractTextLayer(path)
	if err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "pdf-text", err, "Failed to extract text from PDF")
	}
	text := strings.TrimSpace(pdf.JoinPages(pages))
	if text == "" {
		return Result{}, docerr.New(docerr.CodeDocumentProcessing, "pdf-text", "No text found in PDF")
	}
	return Result{Text: text}, nil
}
