// Package support holds the step definitions of the pipeline feature suite.
package support

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/server"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/MeKo-Tech/doctext/internal/testutil/fakes"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	t *testing.T

	// Test environment
	FixtureDir string
	ScratchDir string
	UploadDir  string

	// Scripted collaborators
	Engine  *fakes.Engine
	Backend *fakes.RasterBackend

	Pipeline *pipeline.Pipeline
	Progress *recordingProgress

	// Processing state
	LastResult pipeline.Result
	LastError  error

	// HTTP state
	Server             *server.Server
	HTTPTestServer     *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   server.ProcessResponse
}

// NewTestContext creates a scenario context with fresh directories.
func NewTestContext(t *testing.T) *TestContext {
	root := t.TempDir()
	testCtx := &TestContext{
		t:          t,
		FixtureDir: filepath.Join(root, "fixtures"),
		ScratchDir: filepath.Join(root, "temp"),
		UploadDir:  filepath.Join(root, "uploads"),
		Engine:     &fakes.Engine{Text: "Hello World"},
		Backend:    &fakes.RasterBackend{Pages: 1},
	}
	for _, dir := range []string{testCtx.FixtureDir, testCtx.ScratchDir, testCtx.UploadDir} {
		if err := testutil.EnsureDir(dir); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return testCtx
}

// ensurePipeline builds the pipeline on first use so Given steps can script the
// engine and backend first.
func (testCtx *TestContext) ensurePipeline() (*pipeline.Pipeline, error) {
	if testCtx.Pipeline != nil {
		return testCtx.Pipeline, nil
	}
	p, err := pipeline.NewBuilder().
		WithScratchDir(testCtx.ScratchDir).
		WithEngine(testCtx.Engine).
		WithRasterBackend(testCtx.Backend).
		Build(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	testCtx.Pipeline = p
	return p, nil
}

func (testCtx *TestContext) fixture(name string) string {
	return filepath.Join(testCtx.FixtureDir, name)
}

// Cleanup stops the server and closes the pipeline.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}
	var firstErr error
	if testCtx.Server != nil {
		firstErr = testCtx.Server.Close()
		testCtx.Server = nil
	}
	if testCtx.Pipeline != nil {
		if err := testCtx.Pipeline.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		testCtx.Pipeline = nil
	}
	return firstErr
}
