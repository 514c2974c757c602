package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/doctext/internal/normalizer"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/scratch"
)

// ProcessImageDocument normalizes the image at path and extracts its text.
// The normalized artifact is deleted whatever the outcome; the input is
// never touched.
func (p *Pipeline) ProcessImageDocument(ctx context.Context, path string, opts ...Option) (recognizer.ExtractionResult, error) {
	res, err := p.processImage(ctx, p.newRun(), p.resolve(path), collectOptions(opts))
	p.profiler.recordDocument(1, err)
	return res, err
}

func (p *Pipeline) processImage(ctx context.Context, run *scratch.Run, path string, o runOptions) (recognizer.ExtractionResult, error) {
	img, err := p.normalize(ctx, run, path, 0)
	if err != nil {
		return recognizer.ExtractionResult{}, err
	}
	defer p.cleaner.Remove(img.Path)

	return p.extract(ctx, img, o)
}

func (p *Pipeline) normalize(ctx context.Context, run *scratch.Run, path string, page int) (normalizer.NormalizedImage, error) {
	start := time.Now()
	img, err := p.normalizer.Normalize(ctx, run, path, page)
	p.profiler.recordNormalize(time.Since(start))
	return img, err
}

func (p *Pipeline) extract(ctx context.Context, img normalizer.NormalizedImage, o runOptions) (recognizer.ExtractionResult, error) {
	start := time.Now()
	res, err := p.extractor.Extract(ctx, img.Path, o.ocrStatus)
	p.profiler.recordExtract(time.Since(start))
	if err != nil {
		return recognizer.ExtractionResult{}, err
	}
	slog.Debug("Extracted text", "image", img.Path, "page", img.Page, "chars", len(res.Text), "engine", res.Engine)
	return res, nil
}
