package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cleanup := CleanupStats{Pending: s.cleaner.Pending(), Failures: s.cleaner.Failures()}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Cleanup: cleanup,
	})
}

// processHandler accepts a multipart upload in field "file" and runs it
// through the pipeline.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	// Leave headroom for the multipart envelope; the file itself is checked below.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024)
	if err := r.ParseMultipartForm(limit); err != nil {
		if isBodyTooLarge(err) {
			s.writeError(w, r, http.StatusBadRequest, CodeFileTooLarge, errFileTooLarge)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, CodeUploadError, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeUploadError, errors.New("No file provided")) //nolint:staticcheck // ST1005
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeError(w, r, http.StatusBadRequest, CodeFileTooLarge, errFileTooLarge)
		return
	}
	mt, err := uploadType(header.Filename, header.Header.Get("Content-Type"))
	if err == nil {
		err = checkUploadContent(mt, file)
	}
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidFileType, err)
		return
	}

	path, size, err := s.saveUpload(header.Filename, file, limit)
	if err != nil {
		code := CodeUploadError
		if errors.Is(err, errFileTooLarge) {
			code = CodeFileTooLarge
		}
		s.writeError(w, r, http.StatusBadRequest, code, err)
		return
	}
	defer s.cleaner.Remove(path)
	uploadSizeBytes.Observe(float64(size))

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.process(ctx, pipeline.SourceDocument{Path: path, MediaType: mt, Size: size},
		pipeline.WithProgress(pageLog(path)))
	if err != nil {
		code := docerr.CodeOf(err)
		status := http.StatusUnprocessableEntity
		if code == docerr.CodeInternal {
			status = http.StatusInternalServerError
		}
		s.writeError(w, r, status, string(code), err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{Success: true, Data: newProcessData(res)})
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// process runs the pipeline and records metrics.
func (s *Server) process(ctx context.Context, doc pipeline.SourceDocument, opts ...pipeline.Option) (pipeline.Result, error) {
	start := time.Now()
	res, err := s.processor.Process(ctx, doc, opts...)
	lane := string(res.Lane)
	if err != nil {
		if lane == "" {
			lane = "unknown"
		}
		code := docerr.CodeOf(err)
		documentsTotal.WithLabelValues(lane, "error").Inc()
		documentErrorsTotal.WithLabelValues(string(code)).Inc()
		slog.Warn("Document processing failed", "path", doc.Path, "media_type", doc.MediaType,
			"code", code, "error", err)
		return res, err
	}
	documentsTotal.WithLabelValues(lane, "success").Inc()
	processingDuration.WithLabelValues(lane).Observe(time.Since(start).Seconds())
	textLength.WithLabelValues(lane).Observe(float64(len(res.Text)))
	pagesProcessed.WithLabelValues(lane).Observe(float64(res.PageCount))
	slog.Info("Document processed", "path", doc.Path, "lane", lane, "run_id", res.RunID,
		"pages", res.PageCount, "duration", res.Duration)
	return res, nil
}

// writeError writes a JSON error response and records it in the error log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	s.errorLog.Log(r, code, err)
	writeJSON(w, status, ProcessResponse{
		Success: false,
		Error:   &APIError{Message: docerr.Message(err), Code: code},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// pageLog reports page progress of one upload at debug level.
func pageLog(path string) pipeline.ProgressCallback {
	return pipeline.NewLogProgressCallback(slog.Default().With("upload", filepath.Base(path)), slog.LevelDebug, "Pages: ")
}
