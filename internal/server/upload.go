package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/google/uuid"
)

var (
	errInvalidFileType = errors.New("Invalid file type. Supported types: PDF, DOCX, XLSX, JPG, PNG")                  //nolint:staticcheck // ST1005: user-facing message
	errLegacyWorkbook  = errors.New("Invalid file type. Legacy .xls workbooks are not supported, save as .xlsx") //nolint:staticcheck // ST1005: user-facing message
	errFileTooLarge    = errors.New("File too large")                                                          //nolint:staticcheck // ST1005: user-facing message

	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)
)

// allowedUploadTypes are the media types accepted from clients.
var allowedUploadTypes = map[pipeline.MediaType]bool{
	pipeline.MediaPDF:  true,
	pipeline.MediaDOCX: true,
	pipeline.MediaXLSX: true,
	pipeline.MediaXLS:  true,
	pipeline.MediaJPEG: true,
	pipeline.MediaPNG:  true,
}

// uploadType resolves the client's declared type, falling back to the file
// extension when the client sent none or a generic one.
func uploadType(filename, declared string) (pipeline.MediaType, error) {
	mt := pipeline.ParseMediaType(declared)
	if mt == "" || mt == "application/octet-stream" {
		mt = pipeline.DetectMediaType(filename, "")
	}
	if !allowedUploadTypes[mt] {
		return mt, errInvalidFileType
	}
	return mt, nil
}

// checkUploadContent rejects content the lane for mt cannot read. r is
// rewound afterwards.
func checkUploadContent(mt pipeline.MediaType, r io.ReadSeeker) error {
	if _, kind, err := pipeline.Route(mt); err != nil || kind != document.KindXLSX {
		return nil
	}
	legacy := document.IsLegacyWorkbook(r)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	if legacy {
		return errLegacyWorkbook
	}
	return nil
}

// sanitizeFilename replaces everything but ASCII letters, digits and dots.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// uploadName makes the stored name unique per request.
func uploadName(original string) string {
	clean := sanitizeFilename(original)
	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}

// saveUpload copies r into the upload dir and returns the stored path and
// size. At most limit bytes are accepted.
func (s *Server) saveUpload(filename string, r io.Reader, limit int64) (string, int64, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uploadName(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: name is sanitized
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = errFileTooLarge
	}
	if err != nil {
		s.cleaner.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}
