package cloudvision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type annotateRequest struct {
	Requests []struct {
		Image struct {
			Content string `json:"content"`
		} `json:"image"`
		Features []struct {
			Type string `json:"type"`
		} `json:"features"`
		ImageContext struct {
			LanguageHints []string `json:"languageHints"`
		} `json:"imageContext"`
	} `json:"requests"`
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	eng, err := New(context.Background(), Config{Endpoint: srv.URL + "/", NoAuth: true})
	require.NoError(t, err)
	return eng
}

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(p, []byte("\x89PNG fake"), 0o600))
	return p
}

func TestRecognize_ReturnsTextAndConfidence(t *testing.T) {
	var got annotateRequest
	eng := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/images:annotate"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"fullTextAnnotation":{"text":"Invoice 42\n","pages":[{"confidence":0.9},{"confidence":0.7}]}}]}`)
	})

	var statuses []string
	rec, err := eng.Recognize(context.Background(), recognizer.Request{
		ImagePath: writeImage(t),
		Language:  "eng",
		Progress:  func(s string, _ float64) { statuses = append(statuses, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42\n", rec.Text)
	require.NotNil(t, rec.Confidence)
	assert.InDelta(t, 0.8, *rec.Confidence, 1e-9)
	assert.Equal(t, []string{"uploading", "recognizing text"}, statuses)

	require.Len(t, got.Requests, 1)
	assert.Equal(t, "DOCUMENT_TEXT_DETECTION", got.Requests[0].Features[0].Type)
	assert.Equal(t, []string{"en"}, got.Requests[0].ImageContext.LanguageHints)
	assert.NotEmpty(t, got.Requests[0].Image.Content)
}

func TestRecognize_ZeroPageConfidenceIsUnreported(t *testing.T) {
	tests := []struct {
		name  string
		pages string
		want  *float64
	}{
		{"all zero", `[{"confidence":0},{}]`, nil},
		{"zero pages skipped", `[{"confidence":0},{"confidence":0.7}]`, recognizer.Float(0.7)},
		{"no pages", `[]`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"responses":[{"fullTextAnnotation":{"text":"Hello","pages":`+tt.pages+`}}]}`)
			})
			rec, err := eng.Recognize(context.Background(), recognizer.Request{ImagePath: writeImage(t)})
			require.NoError(t, err)
			assert.Equal(t, "Hello", rec.Text)
			if tt.want == nil {
				assert.Nil(t, rec.Confidence)
				return
			}
			require.NotNil(t, rec.Confidence)
			assert.InDelta(t, *tt.want, *rec.Confidence, 1e-9)
		})
	}
}

func TestRecognize_NoAnnotationMeansNoText(t *testing.T) {
	eng := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{}]}`)
	})
	rec, err := eng.Recognize(context.Background(), recognizer.Request{ImagePath: writeImage(t)})
	require.NoError(t, err)
	assert.Empty(t, rec.Text)
	assert.Nil(t, rec.Confidence)
}

func TestRecognize_PerImageError(t *testing.T) {
	eng := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`)
	})
	_, err := eng.Recognize(context.Background(), recognizer.Request{ImagePath: writeImage(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad image data.")
}

func TestRecognize_HTTPError(t *testing.T) {
	eng := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"denied"}}`)
	})
	_, err := eng.Recognize(context.Background(), recognizer.Request{ImagePath: writeImage(t)})
	require.Error(t, err)
}

func TestRecognize_MissingImage(t *testing.T) {
	eng := newTestEngine(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := eng.Recognize(context.Background(), recognizer.Request{ImagePath: "/does/not/exist.png"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLanguageHint(t *testing.T) {
	cases := map[string]string{
		"eng": "en",
		"deu": "de",
		"fra": "fr",
		"en":  "en",
		"":    "",
		"???": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, LanguageHint(in), in)
	}
}
