package server

import (
	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
)

// Upload error codes. Pipeline failures use the docerr codes.
const (
	CodeUploadError     = "UPLOAD_ERROR"
	CodeFileTooLarge    = "LIMIT_FILE_SIZE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string       `json:"status"`
	Time    string       `json:"time"`
	Cleanup CleanupStats `json:"cleanup"`
}

// CleanupStats reports scratch artifacts awaiting or past removal.
type CleanupStats struct {
	Pending  int `json:"pending"`
	Failures int `json:"failures"`
}

// ProcessData is the payload of a successful /api/process call.
type ProcessData struct {
	Text          string           `json:"text"`
	Confidence    *float64         `json:"confidence"`
	LowConfidence bool             `json:"lowConfidence,omitempty"`
	PageCount     int              `json:"pageCount"`
	Sheets        []document.Sheet `json:"sheets,omitempty"`
	Lane          pipeline.Lane    `json:"lane"`
}

// APIError describes a failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ProcessResponse wraps every /api/process response.
type ProcessResponse struct {
	Success bool         `json:"success"`
	Data    *ProcessData `json:"data,omitempty"`
	Error   *APIError    `json:"error,omitempty"`
}

func newProcessData(res pipeline.Result) *ProcessData {
	return &ProcessData{
		Text:          res.Text,
		Confidence:    res.Confidence,
		LowConfidence: res.LowConfidence,
		PageCount:     res.PageCount,
		Sheets:        res.Sheets,
		Lane:          res.Lane,
	}
}
