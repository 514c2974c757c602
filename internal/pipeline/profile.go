package pipeline

import (
	"sync/atomic"
	"time"
)

// Profiler aggregates stage counters and timers across runs.
type Profiler struct {
	Documents     atomic.Int64
	Pages         atomic.Int64
	Failures      atomic.Int64
	NormalizeTime atomic.Int64 // ns
	ExtractTime   atomic.Int64 // ns
	RasterizeTime atomic.Int64 // ns
}

func (p *Profiler) recordNormalize(d time.Duration) { p.NormalizeTime.Add(int64(d)) }
func (p *Profiler) recordExtract(d time.Duration)   { p.ExtractTime.Add(int64(d)) }
func (p *Profiler) recordRasterize(d time.Duration) { p.RasterizeTime.Add(int64(d)) }

func (p *Profiler) recordDocument(pages int, err error) {
	p.Documents.Add(1)
	p.Pages.Add(int64(pages))
	if err != nil {
		p.Failures.Add(1)
	}
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	docs := p.Documents.Load()
	norm := p.NormalizeTime.Load()
	ext := p.ExtractTime.Load()
	out := map[string]any{
		"documents":          docs,
		"pages":              p.Pages.Load(),
		"failures":           p.Failures.Load(),
		"normalize_ms_total": norm / 1_000_000,
		"extract_ms_total":   ext / 1_000_000,
		"rasterize_ms_total": p.RasterizeTime.Load() / 1_000_000,
	}
	if docs > 0 {
		out["extract_ms_per_document"] = float64(ext) / 1_000_000.0 / float64(docs)
	}
	return out
}
