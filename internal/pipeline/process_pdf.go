package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pdf"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/scratch"
	"golang.org/x/sync/errgroup"
)

// pageSeparator joins page texts in the aggregate.
const pageSeparator = "\n\n"

// ProcessPDFDocument rasterizes, normalizes and OCRs every selected page in
// document order. Each page's artifacts are deleted before the next page
// starts (sequential mode). Any page failure aborts the whole document with
// a PDF_PROCESSING_ERROR; no partial aggregate is returned.
func (p *Pipeline) ProcessPDFDocument(ctx context.Context, path string, opts ...Option) (AggregateResult, error) {
	res, err := p.processPDF(ctx, p.newRun(), path, collectOptions(opts))
	p.profiler.recordDocument(res.PageCount, err)
	return res, err
}

func (p *Pipeline) processPDF(ctx context.Context, run *scratch.Run, path string, o runOptions) (AggregateResult, error) {
	pages, err := p.rasterizer.Rasterize(ctx, run, path, o.pageRange)
	if err != nil {
		return AggregateResult{}, err
	}
	defer func() {
		if cerr := pages.Close(); cerr != nil {
			slog.Warn("Failed to close PDF", "path", pages.Path(), "error", cerr)
		}
	}()

	progress := &syncProgress{cb: o.progress}
	progress.start(pages.Count())

	var results []recognizer.ExtractionResult
	if p.cfg.PDF.PageWorkers > 1 && pages.Count() > 1 {
		results, err = p.processPagesParallel(ctx, run, pages, o, progress)
	} else {
		results, err = p.processPagesSequential(ctx, run, pages, o, progress)
	}
	if err != nil {
		return AggregateResult{}, err
	}
	progress.complete()

	agg := aggregate(pages.Indices(), results)
	slog.Info("Processed PDF", "path", pages.Path(), "run_id", run.ID, "pages", agg.PageCount, "total_pages", pages.Total(), "chars", len(agg.Text))
	return agg, nil
}

func (p *Pipeline) processPagesSequential(ctx context.Context, run *scratch.Run, pages *pdf.Pages, o runOptions, progress *syncProgress) ([]recognizer.ExtractionResult, error) {
	results := make([]recognizer.ExtractionResult, 0, pages.Count())
	start := time.Now()
	for art, err := range pages.All(ctx) {
		p.profiler.recordRasterize(time.Since(start))
		if err != nil {
			progress.fail(pageOf(err), err)
			return nil, err
		}
		res, err := p.processPage(ctx, run, art, o)
		if err != nil {
			progress.fail(art.Index, err)
			return nil, err
		}
		results = append(results, res)
		progress.progress(len(results), pages.Count())
		start = time.Now()
	}
	return results, nil
}

// processPagesParallel runs up to PageWorkers pages at once. Results are
// stored by position so the aggregate keeps document order. The first
// failure cancels pages that have not started yet.
func (p *Pipeline) processPagesParallel(ctx context.Context, run *scratch.Run, pages *pdf.Pages, o runOptions, progress *syncProgress) ([]recognizer.ExtractionResult, error) {
	indices := pages.Indices()
	results := make([]recognizer.ExtractionResult, len(indices))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PDF.PageWorkers)
	for i, idx := range indices {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			// A panic on a worker goroutine is out of reach of Process's recover.
			defer func() {
				if r := recover(); r != nil {
					err = docerr.Internal("page", fmt.Errorf("page %d: panic: %v", idx, r))
					progress.fail(idx, err)
				}
			}()
			if err := gctx.Err(); err != nil {
				return docerr.WrapPage(docerr.CodePDFProcessing, "rasterize", idx, err)
			}
			start := time.Now()
			art, err := pages.Render(gctx, idx)
			p.profiler.recordRasterize(time.Since(start))
			if err != nil {
				progress.fail(idx, err)
				return err
			}
			res, err := p.processPage(gctx, run, art, o)
			if err != nil {
				progress.fail(idx, err)
				return err
			}
			results[i] = res
			progress.progress(int(done.Add(1)), len(indices))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processPage normalizes and OCRs one rendered page, then deletes the page
// raster and the normalized image. Cleanup problems are logged by the
// cleaner and never fail the page.
func (p *Pipeline) processPage(ctx context.Context, run *scratch.Run, art pdf.PageArtifact, o runOptions) (recognizer.ExtractionResult, error) {
	defer p.cleaner.Remove(art.Path)

	img, err := p.normalize(ctx, run, art.Path, art.Index)
	if err != nil {
		return recognizer.ExtractionResult{}, docerr.WrapPage(docerr.CodePDFProcessing, "normalize", art.Index, err)
	}
	defer p.cleaner.Remove(img.Path)

	res, err := p.extract(ctx, img, o)
	if err != nil {
		return recognizer.ExtractionResult{}, docerr.WrapPage(docerr.CodePDFProcessing, "extract", art.Index, err)
	}
	return res, nil
}

// aggregate joins page texts in the order given and averages the reported
// confidences.
func aggregate(indices []int, results []recognizer.ExtractionResult) AggregateResult {
	texts := make([]string, 0, len(results))
	var confs []float64
	var low []int
	for i, r := range results {
		texts = append(texts, r.Text)
		if r.Confidence != nil {
			confs = append(confs, *r.Confidence)
		}
		if r.LowConfidence && i < len(indices) {
			low = append(low, indices[i])
		}
	}
	return AggregateResult{
		Text:       strings.TrimSpace(strings.Join(texts, pageSeparator)),
		PageCount:  len(results),
		Confidence: recognizer.MeanConfidence(confs),
		LowPages:   low,
	}
}

func pageOf(err error) int {
	var de *docerr.Error
	if errors.As(err, &de) {
		return de.Page
	}
	return 0
}
