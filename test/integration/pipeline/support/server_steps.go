package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/doctext/internal/server"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) theServerIsRunning() error {
	p, err := testCtx.ensurePipeline()
	if err != nil {
		return err
	}
	s, err := server.NewServer(server.Config{
		MaxUploadMB: 5,
		TimeoutSec:  30,
		UploadDir:   testCtx.UploadDir,
	}, p, p.Cleaner())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = s
	testCtx.HTTPTestServer = httptest.NewServer(s.Handler())
	return nil
}

func (testCtx *TestContext) iUploadAs(name, contentType string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.fixture(name)) //nolint:gosec // G304: scenario fixture
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		testCtx.HTTPTestServer.URL+"/api/process", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := testCtx.HTTPTestServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = server.ProcessResponse{}
	if err := json.Unmarshal(raw, &testCtx.LastHTTPResponse); err != nil {
		return fmt.Errorf("invalid JSON response %q: %w", raw, err)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d", status, testCtx.LastHTTPStatusCode)
	}
	return nil
}

func (testCtx *TestContext) theResponseTextShouldBe(expected *godog.DocString) error {
	resp := testCtx.LastHTTPResponse
	if !resp.Success || resp.Data == nil {
		return fmt.Errorf("expected a successful response, got %+v", resp.Error)
	}
	if resp.Data.Text != expected.Content {
		return fmt.Errorf("expected text %q, got %q", expected.Content, resp.Data.Text)
	}
	return nil
}

func (testCtx *TestContext) theResponseErrorCodeShouldBe(code string) error {
	resp := testCtx.LastHTTPResponse
	if resp.Success || resp.Error == nil {
		return fmt.Errorf("expected an error response")
	}
	if resp.Error.Code != code {
		return fmt.Errorf("expected error code %s, got %s (%s)", code, resp.Error.Code, resp.Error.Message)
	}
	return nil
}

func (testCtx *TestContext) theUploadDirectoryShouldBeEmpty() error {
	if testCtx.Pipeline != nil {
		testCtx.Pipeline.Cleaner().Wait()
	}
	entries, err := os.ReadDir(testCtx.UploadDir)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return fmt.Errorf("upload directory holds %d entries", len(entries))
	}
	return nil
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^I upload "([^"]*)" as "([^"]*)"$`, testCtx.iUploadAs)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response text should be:$`, testCtx.theResponseTextShouldBe)
	sc.Step(`^the response error code should be "([^"]*)"$`, testCtx.theResponseErrorCodeShouldBe)
	sc.Step(`^the upload directory should be empty$`, testCtx.theUploadDirectoryShouldBeEmpty)
}
