package pipeline

import (
	"context"
	"time"

	"github.com/MeKo-Tech/doctext/internal/document"
)

// ProcessStructuredDocument extracts text or tables without an imaging
// stage. An empty document is a DOCUMENT_PROCESSING_ERROR, never an empty
// success.
func (p *Pipeline) ProcessStructuredDocument(ctx context.Context, path string, kind document.Kind) (document.Result, error) {
	start := time.Now()
	res, err := p.documents.Extract(ctx, p.resolve(path), kind)
	p.profiler.recordExtract(time.Since(start))
	p.profiler.recordDocument(0, err)
	return res, err
}
