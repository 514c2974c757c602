package pipeline

import (
	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
)

// Option adjusts a single processing call.
type Option func(*runOptions)

type runOptions struct {
	progress   ProgressCallback
	ocrStatus  recognizer.ProgressFunc
	pageRange  string
	kind       document.Kind
	preferText bool
}

func collectOptions(opts []Option) runOptions {
	o := runOptions{progress: NoOpProgressCallback{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithProgress reports per-page progress of PDF runs.
func WithProgress(cb ProgressCallback) Option {
	return func(o *runOptions) {
		if cb != nil {
			o.progress = cb
		}
	}
}

// WithOCRStatus forwards engine status updates.
func WithOCRStatus(fn recognizer.ProgressFunc) Option {
	return func(o *runOptions) { o.ocrStatus = fn }
}

// WithPageRange limits a PDF run to the given pages, e.g. "1-3,5".
func WithPageRange(r string) Option {
	return func(o *runOptions) { o.pageRange = r }
}

// WithDocumentKind forces the structured extractor kind.
func WithDocumentKind(k document.Kind) Option {
	return func(o *runOptions) { o.kind = k }
}

// WithTextLayer makes Process read a PDF's embedded text instead of running
// OCR on its pages.
func WithTextLayer(enabled bool) Option {
	return func(o *runOptions) { o.preferText = enabled }
}
