package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/MeKo-Tech/doctext/internal/testutil/fakes"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	s         *Server
	engine    *fakes.Engine
	uploadDir string
	errorLog  string
	fixtures  string
}

// newTestServer wires a real pipeline with the fake engine and raster backend.
func newTestServer(t *testing.T, engine *fakes.Engine, backend *fakes.RasterBackend, configure ...func(*Config)) *testServer {
	t.Helper()
	if engine == nil {
		engine = &fakes.Engine{Text: "Hello World"}
	}
	if backend == nil {
		backend = &fakes.RasterBackend{Pages: 1}
	}
	p, err := pipeline.NewBuilder().
		WithScratchDir(t.TempDir()).
		WithEngine(engine).
		WithRasterBackend(backend).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ts := &testServer{engine: engine, uploadDir: t.TempDir(), fixtures: t.TempDir()}
	ts.errorLog = filepath.Join(t.TempDir(), "logs", "error.log")
	cfg := Config{
		MaxUploadMB: 5,
		TimeoutSec:  30,
		UploadDir:   ts.uploadDir,
		ErrorLog:    ts.errorLog,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	ts.s, err = NewServer(cfg, p, p.Cleaner())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.s.Close() })
	return ts
}

func (ts *testServer) requireUploadsEmpty(t *testing.T) {
	t.Helper()
	ts.s.cleaner.Wait()
	testutil.RequireEmptyDir(t, ts.uploadDir)
}

func (ts *testServer) pngFixture(t *testing.T) []byte {
	t.Helper()
	path := testutil.WriteTextImage(t, ts.fixtures, "scan.png", "Hello World", testutil.SmallSize)
	data, err := os.ReadFile(path) //nolint:gosec // G304: test fixture
	require.NoError(t, err)
	return data
}

func (ts *testServer) fileFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // G304: test fixture
	require.NoError(t, err)
	return data
}

// uploadRequest builds a multipart POST with data in the given field.
func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) ProcessResponse {
	t.Helper()
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

// stubProcessor returns a fixed result or error.
type stubProcessor struct {
	res pipeline.Result
	err error
}

func (p stubProcessor) Process(context.Context, pipeline.SourceDocument, ...pipeline.Option) (pipeline.Result, error) {
	return p.res, p.err
}

// legacyWorkbook returns the start of an OLE2 compound file, the container
// of BIFF .xls workbooks.
func legacyWorkbook() []byte {
	data := make([]byte, 512)
	copy(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	return data
}
