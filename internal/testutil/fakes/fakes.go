// Package fakes provides deterministic stand-ins for the OCR engine and the
// PDF raster backend.
//
// Pages rendered by RasterBackend encode their page number in the image
// width (PageWidthBase+page). Engine reads the width back, so a test can
// script per-page text even when pages are recognized concurrently.
package fakes

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // DecodeConfig
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/doctext/internal/pdf"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/utils"
)

// PageWidthBase is added to the page number to get a rendered page width.
const (
	PageWidthBase = 1000
	PageHeight    = 40
)

// ErrRecognize is returned by Engine for a scripted failure.
var ErrRecognize = errors.New("fake engine failure")

// ErrRender is returned by RasterBackend for a scripted failure.
var ErrRender = errors.New("fake render failure")

// PageOf returns the page number encoded in the image at path, or 0 when the
// image was not produced by RasterBackend.
func PageOf(path string) int {
	f, err := os.Open(path) //nolint:gosec // G304: test helper
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0
	}
	if cfg.Height != PageHeight || cfg.Width <= PageWidthBase {
		return 0
	}
	return cfg.Width - PageWidthBase
}

// Engine is a scripted recognizer.Engine. It is safe for concurrent use.
type Engine struct {
	// Texts maps a page number to its text; Text is used for anything else.
	Texts      map[int]string
	Text       string
	Confidence *float64
	// FailPage makes recognition of that page fail; Err fails every call.
	FailPage int
	Err      error
	// MaxDelay adds a random pause per call to shuffle completion order.
	MaxDelay time.Duration

	mu     sync.Mutex
	calls  []string
	pages  []int
	closed bool
}

var _ recognizer.Engine = (*Engine)(nil)

func (e *Engine) Name() string { return "fake" }

func (e *Engine) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Recognition, error) {
	page := PageOf(req.ImagePath)
	e.mu.Lock()
	e.calls = append(e.calls, req.ImagePath)
	e.pages = append(e.pages, page)
	e.mu.Unlock()

	if e.MaxDelay > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(e.MaxDelay)))): //nolint:gosec // jitter only
		case <-ctx.Done():
			return recognizer.Recognition{}, ctx.Err()
		}
	}
	if _, err := os.Stat(req.ImagePath); err != nil {
		return recognizer.Recognition{}, fmt.Errorf("fake engine: %w", err)
	}
	if req.Progress != nil {
		req.Progress("recognizing text", 1)
	}
	if e.Err != nil {
		return recognizer.Recognition{}, e.Err
	}
	if e.FailPage != 0 && page == e.FailPage {
		return recognizer.Recognition{}, fmt.Errorf("page %d: %w", page, ErrRecognize)
	}

	text := e.Text
	if t, ok := e.Texts[page]; ok {
		text = t
	}
	return recognizer.Recognition{Text: text, Confidence: e.Confidence}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Calls returns the image paths passed to Recognize in call order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Pages returns the decoded page numbers of every call in call order.
func (e *Engine) Pages() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.pages...)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// RasterBackend is a pdf.Backend that ignores the document content and
// renders Pages synthetic page images.
type RasterBackend struct {
	Pages    int
	FailPage int

	mu       sync.Mutex
	rendered []int
	opened   int
	closed   int
}

var _ pdf.Backend = (*RasterBackend)(nil)

func (b *RasterBackend) Name() string { return "fake" }

func (b *RasterBackend) Open(_ context.Context, _ string) (pdf.Source, error) {
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &rasterSource{b: b}, nil
}

// Rendered returns the page numbers rendered so far in render order.
func (b *RasterBackend) Rendered() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.rendered...)
}

// OpenSources returns the number of opened but not yet closed sources.
func (b *RasterBackend) OpenSources() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened - b.closed
}

type rasterSource struct{ b *RasterBackend }

func (s *rasterSource) PageCount() int { return s.b.Pages }

func (s *rasterSource) RenderPage(ctx context.Context, index int, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.b.mu.Lock()
	s.b.rendered = append(s.b.rendered, index)
	s.b.mu.Unlock()

	if index == s.b.FailPage {
		return fmt.Errorf("page %d: %w", index, ErrRender)
	}
	return utils.SavePNG(PageImage(index), dst)
}

func (s *rasterSource) Close() error {
	s.b.mu.Lock()
	s.b.closed++
	s.b.mu.Unlock()
	return nil
}

// PageImage draws a white page with a black bar. Its width encodes index.
func PageImage(index int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, PageWidthBase+index, PageHeight))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 10; y < 30; y++ {
		for x := 10; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	return img
}
