package server

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (1).pdf", "my_report__1_.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\ann\scan.png`, "scan.png"},
		{"résumé.docx", "r_sum_.docx"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func TestUploadName(t *testing.T) {
	pattern := regexp.MustCompile(`^my_report_[0-9a-f]{8}\.pdf$`)
	a := uploadName("my report.pdf")
	b := uploadName("my report.pdf")
	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)

	assert.True(t, strings.HasPrefix(uploadName(""), "upload_"))
	assert.True(t, strings.HasPrefix(uploadName(".pdf"), "upload_"))
}

func TestUploadType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		want     pipeline.MediaType
		wantErr  bool
	}{
		{"declared pdf", "a.bin", "application/pdf", pipeline.MediaPDF, false},
		{"declared with params", "a", "image/png; charset=binary", pipeline.MediaPNG, false},
		{"octet stream uses extension", "a.jpg", "application/octet-stream", pipeline.MediaJPEG, false},
		{"missing type uses extension", "sheet.xlsx", "", pipeline.MediaXLSX, false},
		{"plain text rejected", "a.txt", "text/plain", "", true},
		{"tiff rejected", "a.tiff", "image/tiff", "", true},
		{"unknown extension", "a.zzz", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := uploadType(tt.filename, tt.declared)
			if tt.wantErr {
				require.ErrorIs(t, err, errInvalidFileType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mt)
		})
	}
}

func TestSaveUpload(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	path, size, err := ts.s.saveUpload("notes (v2).pdf", bytes.NewReader([]byte("%PDF-1.4 body")), 64)
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.Equal(t, ts.uploadDir, filepath.Dir(path))
	data, err := os.ReadFile(path) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	ts.s.cleaner.Remove(path)

	_, _, err = ts.s.saveUpload("big.pdf", bytes.NewReader(make([]byte, 65)), 64)
	require.ErrorIs(t, err, errFileTooLarge)
	ts.requireUploadsEmpty(t)
}
