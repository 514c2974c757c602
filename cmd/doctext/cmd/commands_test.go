package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/MeKo-Tech/doctext/internal/testutil/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCommand(t *testing.T) {
	useFakePipeline(t, &fakes.Engine{Text: "Hello World", Confidence: recognizer.Float(0.95)}, nil)
	png := testutil.WriteTextImage(t, t.TempDir(), "scan.png", "Hello World", testutil.SmallSize)

	out, _, err := execute(t, "image", png)
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n", out)

	out, _, err = execute(t, "image", png, "--format", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "image", decoded["lane"])
	assert.InDelta(t, 0.95, decoded["confidence"], 1e-9)
}

func TestImageCommandOutputFile(t *testing.T) {
	useFakePipeline(t, nil, nil)
	dir := t.TempDir()
	png := testutil.WriteTextImage(t, dir, "scan.png", "Hello World", testutil.SmallSize)
	outFile := filepath.Join(dir, "out.txt")

	out, _, err := execute(t, "image", png, "--output", outFile)
	require.NoError(t, err)
	assert.Equal(t, "Results written to "+outFile+"\n", out)
	data, err := os.ReadFile(outFile) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(data))
}

func TestImageCommandErrors(t *testing.T) {
	useFakePipeline(t, &fakes.Engine{Text: ""}, nil)
	dir := t.TempDir()
	png := testutil.WriteTextImage(t, dir, "blank.png", "", testutil.SmallSize)
	pdfPath := testutil.WritePDF(t, dir, "doc.pdf", "a")

	_, _, err := execute(t, "image", png)
	require.Error(t, err)
	assert.Equal(t, "TEXT_EXTRACTION_ERROR: No text could be extracted from the image", FormatError(err))

	_, _, err = execute(t, "image", pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application/pdf")

	_, _, err = execute(t, "image", filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")

	_, _, err = execute(t, "image")
	require.Error(t, err)

	_, _, err = execute(t, "image", png, "--threshold", "300")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestPDFCommand(t *testing.T) {
	useFakePipeline(t, &fakes.Engine{Texts: map[int]string{1: "one", 2: "two"}}, &fakes.RasterBackend{Pages: 2})
	pdfPath := testutil.WritePDF(t, t.TempDir(), "two.pdf", "a", "b")

	out, _, err := execute(t, "pdf", pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n", out)

	out, _, err = execute(t, "pdf", pdfPath, "--pages", "2")
	require.NoError(t, err)
	assert.Equal(t, "two\n", out)

	out, errOut, err := execute(t, "pdf", pdfPath, "--progress", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lane,media_type,pages,confidence,text\n"), out)
	assert.Contains(t, errOut, "Pages: 0/2")
}

func TestDocCommand(t *testing.T) {
	useFakePipeline(t, nil, nil)
	dir := t.TempDir()
	samples := testutil.WriteSampleDocuments(t, dir)

	out, _, err := execute(t, "doc", samples.DOCX)
	require.NoError(t, err)
	assert.Equal(t, "Dear reader,\n\nBody text.\n", out)

	renamed := filepath.Join(dir, "export.bin")
	require.NoError(t, os.Rename(samples.XLSX, renamed))
	out, _, err = execute(t, "doc", renamed, "--kind", "xlsx", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"People"`)
	assert.Contains(t, out, `"Ann"`)

	_, _, err = execute(t, "doc", renamed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--kind")

	_, _, err = execute(t, "doc", samples.DOCX, "--kind", "odt")
	require.Error(t, err)
}

func TestProcessCommand(t *testing.T) {
	useFakePipeline(t, &fakes.Engine{Texts: map[int]string{1: "one", 2: "two"}}, &fakes.RasterBackend{Pages: 2})
	dir := t.TempDir()
	pdfPath := testutil.WritePDF(t, dir, "two.pdf", "a", "b")
	upload := filepath.Join(dir, "upload.bin")
	require.NoError(t, os.Rename(pdfPath, upload))

	out, _, err := execute(t, "process", upload, "--type", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n", out)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain"), 0o600))
	_, _, err = execute(t, "process", notes)
	require.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	useFakePipeline(t, &fakes.Engine{Text: "scanned"}, &fakes.RasterBackend{Pages: 1})
	dir := t.TempDir()
	testutil.WriteTextImage(t, dir, "a.png", "a", testutil.SmallSize)
	testutil.WriteDOCX(t, filepath.Join(dir, "nested"), "b.docx", "Docx body")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.docx"), []byte("not a zip"), 0o600))

	_, _, err := execute(t, "batch", dir)
	require.Error(t, err)
	assert.Equal(t, "DOCUMENT_PROCESSING_ERROR", strings.SplitN(FormatError(err), ":", 2)[0])

	out, errOut, err := execute(t, "batch", dir, "--continue-on-error", "--workers", "2", "--format", "json", "--stats")
	require.NoError(t, err)
	var decoded struct {
		Documents []struct {
			File  string         `json:"file"`
			Error map[string]any `json:"error"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Documents, 3)
	assert.Equal(t, filepath.Join(dir, "broken.docx"), decoded.Documents[1].File)
	assert.NotNil(t, decoded.Documents[1].Error)
	assert.Contains(t, errOut, "Failed: 1")

	out, _, err = execute(t, "batch", dir, "--no-recursive", "--include", "*.png")
	require.NoError(t, err)
	assert.Equal(t, "# "+filepath.Join(dir, "a.png")+"\nscanned\n", out)

	_, _, err = execute(t, "batch", dir, "--workers", "0")
	require.Error(t, err)
}

func TestServeCommandInvalidPort(t *testing.T) {
	_, _, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestServerConfig(t *testing.T) {
	cfg := GetConfig()
	cfg.UploadDir = "up"
	cfg.Server.RateLimit.MaxDataPerDayMB = 2
	sc := serverConfig(cfg)
	assert.Equal(t, "up", sc.UploadDir)
	assert.Equal(t, int64(2*1024*1024), sc.RateLimit.MaxDataPerDay)
	assert.Equal(t, int64(cfg.Server.MaxUploadMB), sc.MaxUploadMB)
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("DOCTEXT_OCR_LANGUAGE", "fra")
	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "language: fra")
	assert.Contains(t, out, "engine: tesseract")

	file := filepath.Join(t.TempDir(), "conf", "doctext.yaml")
	out, _, err = execute(t, "config", "init", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+file)
	assert.True(t, testutil.FileExists(file))

	_, _, err = execute(t, "config", "init", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = execute(t, "config", "init", file, "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/doctext")
}
