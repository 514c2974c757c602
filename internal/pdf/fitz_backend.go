//go:build fitz

package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/doctext/internal/utils"
	"github.com/gen2brain/go-fitz"
)

func newMuPDFBackend(cfg BackendConfig) (Backend, error) {
	return &muPDFBackend{dpi: float64(cfg.DPI)}, nil
}

// muPDFBackend renders in-process through MuPDF.
type muPDFBackend struct {
	dpi float64
}

func (b *muPDFBackend) Name() string { return BackendMuPDF }

func (b *muPDFBackend) Open(_ context.Context, path string) (Source, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &muPDFSource{doc: doc, dpi: b.dpi}, nil
}

type muPDFSource struct {
	mu  sync.Mutex // fitz documents are not safe for concurrent use
	doc *fitz.Document
	dpi float64
}

func (s *muPDFSource) PageCount() int { return s.doc.NumPage() }

func (s *muPDFSource) RenderPage(ctx context.Context, index int, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	img, err := s.doc.ImageDPI(index-1, s.dpi)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("render page %d: %w", index, err)
	}
	return utils.SavePNG(img, dst)
}

func (s *muPDFSource) Close() error { return s.doc.Close() }
