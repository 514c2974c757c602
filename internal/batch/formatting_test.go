package batch

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFiles() []FileResult {
	return []FileResult{
		{Path: "scan.png", Result: &pipeline.Result{
			Lane: pipeline.LaneImage, Text: "Hello, World", PageCount: 1, Confidence: recognizer.Float(0.9),
		}},
		{Path: "broken.pdf", Err: docerr.New(docerr.CodePDFProcessing, "rasterize", "Failed to convert PDF to images")},
	}
}

func TestFormatText(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), pipeline.FormatText)
	require.NoError(t, err)
	assert.Equal(t,
		"# scan.png\nHello, World\n\n# broken.pdf\nerror: PDF_PROCESSING_ERROR: Failed to convert PDF to images\n",
		out)
}

func TestFormatJSON(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), pipeline.FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Documents []struct {
			File   string `json:"file"`
			Result *struct {
				Text string `json:"text"`
				Lane string `json:"lane"`
			} `json:"result"`
			Error *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Documents, 2)
	assert.Equal(t, "Hello, World", decoded.Documents[0].Result.Text)
	assert.Nil(t, decoded.Documents[0].Error)
	assert.Nil(t, decoded.Documents[1].Result)
	assert.Equal(t, "PDF_PROCESSING_ERROR", decoded.Documents[1].Error.Code)
}

func TestFormatCSV(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), pipeline.FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"file", "status", "lane", "pages", "confidence", "error_code", "text"}, rows[0])
	assert.Equal(t, []string{"scan.png", "ok", "image", "1", "0.900", "", "Hello, World"}, rows[1])
	assert.Equal(t, "error", rows[2][1])
	assert.Equal(t, "PDF_PROCESSING_ERROR", rows[2][5])
}

func TestFormatUnknown(t *testing.T) {
	_, err := formatBatchResults(sampleFiles(), "yaml")
	assert.Error(t, err)
}
