// Package recognizer turns normalized images into text through a pluggable
// OCR engine.
//
// Engines only implement recognition. The Extractor layered on top owns the
// behavior every engine shares: language defaults, text cleanup, the
// empty-text rule, the low-confidence signal and error classification.
package recognizer

import (
	"context"
	"errors"
)

// ProgressFunc receives engine progress. fraction is in [0,1].
type ProgressFunc func(status string, fraction float64)

// Request is a single recognition call.
type Request struct {
	ImagePath string
	Language  string // Tesseract language code, e.g. "eng"
	Progress  ProgressFunc
}

// Recognition is the raw engine output.
type Recognition struct {
	Text       string
	Confidence *float64 // nil when the engine reports none
}

// Engine is the OCR capability the pipeline depends on.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, req Request) (Recognition, error)
	Close() error
}

// ErrEngineUnavailable is returned when the selected engine was not compiled
// in or cannot be reached.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Float returns a pointer to v; engines use it to report confidence.
func Float(v float64) *float64 { return &v }

// MeanConfidence averages values in [0,1]. It returns nil for an empty slice.
func MeanConfidence(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Float(clamp01(sum / float64(len(values))))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
