// Package document extracts text and tables from structured documents
// without an imaging stage: DOCX body text, XLSX sheets and the embedded
// text layer of PDFs.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/doctext/internal/docerr"
)

// Kind selects the structured extractor.
type Kind string

const (
	KindDOCX Kind = "docx"
	KindXLSX Kind = "xlsx"
	KindPDF  Kind = "pdf"
)

// Kinds lists the supported kinds.
var Kinds = []Kind{KindDOCX, KindXLSX, KindPDF}

// KindNames returns the supported kinds as a comma-separated list.
func KindNames() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown document kind %q (want one of %s)", s, KindNames())
}

// KindFromExtension maps a file extension to its kind. ok is false for
// extensions without a structured extractor.
func KindFromExtension(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return KindDOCX, true
	case ".xlsx", ".xlsm", ".xls":
		return KindXLSX, true
	case ".pdf":
		return KindPDF, true
	}
	return "", false
}

// Sheet holds the data rows of one worksheet. Each row maps a header cell to
// its value; empty cells are omitted.
type Sheet struct {
	Name string              `json:"name"`
	Rows []map[string]string `json:"rows"`
}

// Result is the outcome of a structured extraction.
type Result struct {
	Kind   Kind    `json:"kind"`
	Text   string  `json:"text"`
	Sheets []Sheet `json:"sheets,omitempty"`
}

// Extractor dispatches to the per-kind extractors.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract reads path as kind. An empty result is a DOCUMENT_PROCESSING_ERROR.
func (e *Extractor) Extract(ctx context.Context, path string, kind Kind) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "extract", err, "Failed to process document")
	}

	slog.Debug("Extracting structured document", "path", path, "kind", kind)
	var (
		res Result
		err error
	)
	switch kind {
	case KindDOCX:
		res, err = extractDOCX(path)
	case KindXLSX:
		res, err = extractXLSX(path)
	case KindPDF:
		res, err = extractPDFText(path)
	default:
		return Result{}, docerr.New(docerr.CodeDocumentProcessing, "extract",
			fmt.Sprintf("Unsupported document kind %q", kind))
	}
	if err != nil {
		return Result{}, err
	}
	res.Kind = kind
	return res, nil
}
