package recognizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/doctext/internal/docerr"
)

// Config holds extractor settings shared by all engines.
type Config struct {
	Language      string        // default "eng"
	LowConfidence float64       // results below this are flagged; 0 means 0.6, negative disables
	Clean         *CleanOptions // nil uses DefaultCleanOptions
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() Config {
	return Config{
		Language:      "eng",
		LowConfidence: 0.6,
	}
}

// ExtractionResult is the cleaned OCR output for one image.
type ExtractionResult struct {
	Text          string
	Confidence    *float64
	LowConfidence bool
	Engine        string
}

// Extractor runs OCR through an Engine and applies the shared rules.
type Extractor struct {
	engine Engine
	cfg    Config
}

// NewExtractor wraps engine. Empty config fields take defaults.
func NewExtractor(engine Engine, cfg Config) *Extractor {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	switch {
	case cfg.LowConfidence == 0:
		cfg.LowConfidence = 0.6
	case cfg.LowConfidence < 0:
		cfg.LowConfidence = 0
	}
	if cfg.Clean == nil {
		opts := DefaultCleanOptions()
		cfg.Clean = &opts
	}
	return &Extractor{engine: engine, cfg: cfg}
}

// Engine returns the wrapped engine.
func (e *Extractor) Engine() Engine { return e.engine }

// Extract recognizes the text in imagePath. The image is left in place;
// deleting it is the caller's job. progress may be nil.
func (e *Extractor) Extract(ctx context.Context, imagePath string, progress ProgressFunc) (ExtractionResult, error) {
	if progress == nil {
		progress = func(status string, fraction float64) {
			slog.Debug("OCR progress", "engine", e.engine.Name(), "status", status, "progress", fraction)
		}
	}

	start := time.Now()
	rec, err := e.engine.Recognize(ctx, Request{
		ImagePath: imagePath,
		Language:  e.cfg.Language,
		Progress:  progress,
	})
	if err != nil {
		return ExtractionResult{}, docerr.Wrap(docerr.CodeTextExtraction, "extract", err, "Failed to extract text from image")
	}

	text := PostProcessText(rec.Text, *e.cfg.Clean)
	if text == "" {
		return ExtractionResult{}, docerr.New(docerr.CodeTextExtraction, "extract", "No text could be extracted from the image")
	}

	res := ExtractionResult{Text: text, Engine: e.engine.Name()}
	if rec.Confidence != nil {
		c := clamp01(*rec.Confidence)
		res.Confidence = &c
		if c < e.cfg.LowConfidence {
			res.LowConfidence = true
			slog.Warn("Low confidence in text recognition",
				"engine", res.Engine, "image", imagePath, "confidence", c, "threshold", e.cfg.LowConfidence)
		}
	}

	slog.Debug("Extracted text",
		"engine", res.Engine, "image", imagePath, "chars", len(text), "duration", time.Since(start))
	return res, nil
}
