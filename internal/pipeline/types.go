package pipeline

import (
	"time"

	"github.com/MeKo-Tech/doctext/internal/document"
)

// MediaType is a MIME type without parameters.
type MediaType string

// Media types routed by Process.
const (
	MediaPNG  MediaType = "image/png"
	MediaJPEG MediaType = "image/jpeg"
	MediaBMP  MediaType = "image/bmp"
	MediaTIFF MediaType = "image/tiff"
	MediaWebP MediaType = "image/webp"
	MediaPDF  MediaType = "application/pdf"
	MediaDOCX MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaXLSX MediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaXLS  MediaType = "application/vnd.ms-excel"
)

// Lane is the sub-pipeline selected for a document.
type Lane string

const (
	LaneImage      Lane = "image"
	LanePDF        Lane = "pdf"
	LaneStructured Lane = "structured"
)

// SourceDocument is a caller-owned input. The pipeline only reads it.
type SourceDocument struct {
	Path      string
	MediaType MediaType // may be empty; Process then detects it
	Size      int64
}

// AggregateResult is the page-ordered OCR text of a paged document.
type AggregateResult struct {
	Text       string   `json:"text"`
	PageCount  int      `json:"page_count"`
	Confidence *float64 `json:"confidence,omitempty"` // mean over pages that reported one
	LowPages   []int    `json:"low_confidence_pages,omitempty"`
}

// Result is the lane-independent envelope returned by Process.
type Result struct {
	Lane          Lane             `json:"lane"`
	MediaType     MediaType        `json:"media_type"`
	Text          string           `json:"text"`
	Confidence    *float64         `json:"confidence,omitempty"`
	LowConfidence bool             `json:"low_confidence,omitempty"`
	PageCount     int              `json:"page_count,omitempty"`
	Sheets        []document.Sheet `json:"sheets,omitempty"`
	RunID         string           `json:"run_id"`
	Duration      time.Duration    `json:"duration_ns"`
}
