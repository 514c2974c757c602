package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/cucumber/godog"
)

// recordingProgress keeps every reported page count.
type recordingProgress struct {
	mu      sync.Mutex
	total   int
	updates []int
	done    bool
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, current)
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

func (r *recordingProgress) OnError(int, error) {}

// Given steps

func (testCtx *TestContext) theOCREngineReads(text string) error {
	testCtx.Engine.Text = text
	return nil
}

func (testCtx *TestContext) theOCREngineReadsPageAs(page int, text string) error {
	if testCtx.Engine.Texts == nil {
		testCtx.Engine.Texts = make(map[int]string)
	}
	testCtx.Engine.Texts[page] = text
	return nil
}

func (testCtx *TestContext) theOCREngineReportsConfidence(conf float64) error {
	testCtx.Engine.Confidence = recognizer.Float(conf)
	return nil
}

func (testCtx *TestContext) theOCREngineFailsOnPage(page int) error {
	testCtx.Engine.FailPage = page
	return nil
}

func (testCtx *TestContext) theRasterizerProducesPages(pages int) error {
	testCtx.Backend.Pages = pages
	return nil
}

func (testCtx *TestContext) anImage(name string) error {
	testutil.WriteTextImage(testCtx.t, testCtx.FixtureDir, name, "Hello World", testutil.SmallSize)
	return nil
}

func (testCtx *TestContext) aPDFWithPages(name string, pages int) error {
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = "page " + strconv.Itoa(i+1)
	}
	testutil.WritePDF(testCtx.t, testCtx.FixtureDir, name, texts...)
	return nil
}

func (testCtx *TestContext) aWordDocumentWithParagraphs(name string, table *godog.Table) error {
	var paragraphs []string
	for _, row := range table.Rows {
		paragraphs = append(paragraphs, row.Cells[0].Value)
	}
	testutil.WriteDOCX(testCtx.t, testCtx.FixtureDir, name, paragraphs...)
	return nil
}

func (testCtx *TestContext) aSpreadsheetWithSheet(name, sheet string, table *godog.Table) error {
	data := testutil.SheetData{Name: sheet}
	for _, row := range table.Rows {
		cells := make([]any, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Value
		}
		data.Rows = append(data.Rows, cells)
	}
	testutil.WriteXLSX(testCtx.t, testCtx.FixtureDir, name, data)
	return nil
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	return os.WriteFile(testCtx.fixture(name), []byte(content), 0o600)
}

// When steps

func (testCtx *TestContext) process(name string, opts ...pipeline.Option) error {
	p, err := testCtx.ensurePipeline()
	if err != nil {
		return err
	}
	path := testCtx.fixture(name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("fixture %s: %w", name, err)
	}
	testCtx.Progress = &recordingProgress{}
	opts = append(opts, pipeline.WithProgress(testCtx.Progress))
	testCtx.LastResult, testCtx.LastError = p.Process(context.Background(),
		pipeline.SourceDocument{Path: path, Size: info.Size()}, opts...)
	return nil
}

func (testCtx *TestContext) iProcess(name string) error {
	return testCtx.process(name)
}

func (testCtx *TestContext) iProcessPages(name, pages string) error {
	return testCtx.process(name, pipeline.WithPageRange(pages))
}

func (testCtx *TestContext) iProcessAs(name, kind string) error {
	k, err := document.ParseKind(kind)
	if err != nil {
		return err
	}
	return testCtx.process(name, pipeline.WithDocumentKind(k))
}

// Then steps

func (testCtx *TestContext) processingShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("expected success, got %v", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theTextShouldBe(expected *godog.DocString) error {
	if err := testCtx.processingShouldSucceed(); err != nil {
		return err
	}
	if testCtx.LastResult.Text != expected.Content {
		return fmt.Errorf("expected text %q, got %q", expected.Content, testCtx.LastResult.Text)
	}
	return nil
}

func (testCtx *TestContext) theLaneShouldBe(lane string) error {
	if got := string(testCtx.LastResult.Lane); got != lane {
		return fmt.Errorf("expected lane %q, got %q", lane, got)
	}
	return nil
}

func (testCtx *TestContext) thePageCountShouldBe(n int) error {
	if got := testCtx.LastResult.PageCount; got != n {
		return fmt.Errorf("expected %d pages, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldBeFlaggedAsLowConfidence() error {
	if !testCtx.LastResult.LowConfidence {
		return fmt.Errorf("expected low confidence flag, confidence was %s",
			pipeline.FormatConfidence(testCtx.LastResult.Confidence))
	}
	return nil
}

func (testCtx *TestContext) theResultShouldHaveNoConfidence() error {
	if c := testCtx.LastResult.Confidence; c != nil {
		return fmt.Errorf("expected no confidence, got %v", *c)
	}
	return nil
}

func (testCtx *TestContext) processingShouldFailWithCode(code string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected %s, processing succeeded", code)
	}
	if got := string(docerr.CodeOf(testCtx.LastError)); got != code {
		return fmt.Errorf("expected code %s, got %s (%v)", code, got, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) processingShouldBeRejectedAsUnsupported() error {
	if !errors.Is(testCtx.LastError, pipeline.ErrUnsupportedMediaType) {
		return fmt.Errorf("expected unsupported media type, got %v", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theErrorMessageShouldContain(text string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected an error containing %q", text)
	}
	if msg := docerr.Message(testCtx.LastError); !strings.Contains(msg, text) {
		return fmt.Errorf("expected message containing %q, got %q", text, msg)
	}
	return nil
}

func (testCtx *TestContext) theOCREngineShouldNotHaveBeenCalled() error {
	if calls := testCtx.Engine.Calls(); len(calls) != 0 {
		return fmt.Errorf("expected no OCR calls, got %d", len(calls))
	}
	return nil
}

func (testCtx *TestContext) theOCREngineShouldHaveRecognizedPages(list string) error {
	want := map[int]bool{}
	for _, f := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return err
		}
		want[n] = true
	}
	got := testCtx.Engine.Pages()
	if len(got) != len(want) {
		return fmt.Errorf("expected pages %s, got %v", list, got)
	}
	for _, p := range got {
		if !want[p] {
			return fmt.Errorf("unexpected page %d in %v", p, got)
		}
	}
	return nil
}

func (testCtx *TestContext) progressShouldHaveReportedPages(total int) error {
	r := testCtx.Progress
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total != total {
		return fmt.Errorf("expected progress total %d, got %d", total, r.total)
	}
	if len(r.updates) != total {
		return fmt.Errorf("expected %d progress updates, got %v", total, r.updates)
	}
	if !r.done {
		return fmt.Errorf("progress was not completed")
	}
	return nil
}

func (testCtx *TestContext) theSheetShouldHaveRowWith(sheet, column, value string) error {
	for _, s := range testCtx.LastResult.Sheets {
		if s.Name != sheet {
			continue
		}
		for _, row := range s.Rows {
			if row[column] == value {
				return nil
			}
		}
		return fmt.Errorf("sheet %s has no row with %s=%s: %v", sheet, column, value, s.Rows)
	}
	return fmt.Errorf("sheet %s not found", sheet)
}

func (testCtx *TestContext) theScratchDirectoryShouldBeEmpty() error {
	if testCtx.Pipeline != nil {
		testCtx.Pipeline.Cleaner().Wait()
	}
	entries, err := os.ReadDir(testCtx.ScratchDir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) != 0 {
		return fmt.Errorf("scratch directory not empty: %v", names)
	}
	return nil
}

// RegisterDocumentSteps registers the pipeline steps.
func (testCtx *TestContext) RegisterDocumentSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the OCR engine reads "([^"]*)"$`, testCtx.theOCREngineReads)
	sc.Step(`^the OCR engine reads page (\d+) as "([^"]*)"$`, testCtx.theOCREngineReadsPageAs)
	sc.Step(`^the OCR engine reports confidence ([\d.]+)$`, testCtx.theOCREngineReportsConfidence)
	sc.Step(`^the OCR engine fails on page (\d+)$`, testCtx.theOCREngineFailsOnPage)
	sc.Step(`^the rasterizer produces (\d+) pages$`, testCtx.theRasterizerProducesPages)
	sc.Step(`^an image "([^"]*)"$`, testCtx.anImage)
	sc.Step(`^a PDF "([^"]*)" with (\d+) pages$`, testCtx.aPDFWithPages)
	sc.Step(`^a Word document "([^"]*)" with paragraphs:$`, testCtx.aWordDocumentWithParagraphs)
	sc.Step(`^a spreadsheet "([^"]*)" with sheet "([^"]*)":$`, testCtx.aSpreadsheetWithSheet)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)

	sc.Step(`^I process "([^"]*)"$`, testCtx.iProcess)
	sc.Step(`^I process pages "([^"]*)" of "([^"]*)"$`, func(pages, name string) error {
		return testCtx.iProcessPages(name, pages)
	})
	sc.Step(`^I process "([^"]*)" as a "([^"]*)" document$`, testCtx.iProcessAs)

	sc.Step(`^processing should succeed$`, testCtx.processingShouldSucceed)
	sc.Step(`^the text should be:$`, testCtx.theTextShouldBe)
	sc.Step(`^the lane should be "([^"]*)"$`, testCtx.theLaneShouldBe)
	sc.Step(`^the page count should be (\d+)$`, testCtx.thePageCountShouldBe)
	sc.Step(`^the result should be flagged as low confidence$`, testCtx.theResultShouldBeFlaggedAsLowConfidence)
	sc.Step(`^the result should have no confidence$`, testCtx.theResultShouldHaveNoConfidence)
	sc.Step(`^processing should fail with code "([^"]*)"$`, testCtx.processingShouldFailWithCode)
	sc.Step(`^processing should be rejected as unsupported$`, testCtx.processingShouldBeRejectedAsUnsupported)
	sc.Step(`^the error message should contain "([^"]*)"$`, testCtx.theErrorMessageShouldContain)
	sc.Step(`^the OCR engine should not have been called$`, testCtx.theOCREngineShouldNotHaveBeenCalled)
	sc.Step(`^the OCR engine should have recognized pages "([^"]*)"$`, testCtx.theOCREngineShouldHaveRecognizedPages)
	sc.Step(`^progress should have been reported for (\d+) pages$`, testCtx.progressShouldHaveReportedPages)
	sc.Step(`^sheet "([^"]*)" should have a row with "([^"]*)" set to "([^"]*)"$`, testCtx.theSheetShouldHaveRowWith)
	sc.Step(`^the scratch directory should be empty$`, testCtx.theScratchDirectoryShouldBeEmpty)
}
