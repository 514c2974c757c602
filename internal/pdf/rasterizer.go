package pdf

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/scratch"
)

// PageArtifact is a rendered page raster in scratch space.
type PageArtifact struct {
	Index int // 1-based page number
	Path  string
}

// Config controls input resolution and decryption.
type Config struct {
	ProjectRoot string // base for relative paths; empty means the working directory
	Password    PasswordCredentials
}

// Rasterizer converts PDF pages into raster files one page at a time.
type Rasterizer struct {
	backend Backend
	cleaner *scratch.Cleaner
	crypto  *PasswordHandler
	cfg     Config
}

// NewRasterizer creates a Rasterizer that renders through backend and
// deletes its own artifacts through cleaner.
func NewRasterizer(backend Backend, cleaner *scratch.Cleaner, cfg Config) *Rasterizer {
	return &Rasterizer{
		backend: backend,
		cleaner: cleaner,
		crypto:  NewPasswordHandler(cfg.Password),
		cfg:     cfg,
	}
}

// Backend returns the raster backend.
func (r *Rasterizer) Backend() Backend { return r.backend }

// ResolvePath makes path absolute against the project root and checks that
// it exists.
func ResolvePath(projectRoot, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		root := projectRoot
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", docerr.Wrap(docerr.CodePDFProcessing, "resolve", err, "Failed to resolve PDF path")
			}
			root = wd
		}
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &docerr.Error{
				Code:    docerr.CodePDFProcessing,
				Op:      "resolve",
				Message: "File not found: " + abs,
				Err:     err,
			}
		}
		return "", docerr.Wrap(docerr.CodePDFProcessing, "resolve", err, "Failed to access PDF")
	}
	if info.IsDir() {
		return "", docerr.New(docerr.CodePDFProcessing, "resolve", "Not a file: "+abs)
	}
	return abs, nil
}

// Rasterize opens the document at path and returns its page sequence. Pages
// are rendered lazily; the caller must Close the result.
func (r *Rasterizer) Rasterize(ctx context.Context, run *scratch.Run, path, pageRange string) (*Pages, error) {
	abs, err := ResolvePath(r.cfg.ProjectRoot, path)
	if err != nil {
		return nil, err
	}

	source := abs
	var decrypted string
	encrypted, err := r.crypto.IsEncrypted(abs)
	if err != nil {
		return nil, docerr.Wrap(docerr.CodePDFProcessing, "open", err, "Failed to process PDF")
	}
	if encrypted {
		decrypted = run.FilePath("decrypted.pdf")
		if err := r.crypto.DecryptTo(abs, decrypted); err != nil {
			return nil, docerr.Wrap(docerr.CodePDFProcessing, "decrypt", err, "Failed to process PDF")
		}
		slog.Debug("Decrypted PDF into scratch", "path", abs, "copy", decrypted)
		source = decrypted
	}

	src, err := r.backend.Open(ctx, source)
	if err != nil {
		r.cleaner.Remove(decrypted)
		return nil, docerr.Wrap(docerr.CodePDFProcessing, "open", err, "Failed to process PDF")
	}

	total := src.PageCount()
	if total == 0 {
		_ = src.Close()
		r.cleaner.Remove(decrypted)
		return nil, docerr.New(docerr.CodePDFProcessing, "open", "PDF has no pages")
	}
	indices, err := SelectPages(pageRange, total)
	if err != nil {
		_ = src.Close()
		r.cleaner.Remove(decrypted)
		return nil, docerr.Wrap(docerr.CodePDFProcessing, "open", err, "Failed to process PDF")
	}

	slog.Debug("Opened PDF", "path", abs, "backend", r.backend.Name(), "pages", total, "selected", len(indices))
	return &Pages{
		src:       src,
		run:       run,
		cleaner:   r.cleaner,
		path:      abs,
		indices:   indices,
		total:     total,
		decrypted: decrypted,
	}, nil
}

// Pages is an opened document's selected pages.
type Pages struct {
	src       Source
	run       *scratch.Run
	cleaner   *scratch.Cleaner
	path      string
	indices   []int
	total     int
	decrypted string

	mu       sync.Mutex
	iterated bool
	closed   bool
}

// Path returns the resolved absolute document path.
func (p *Pages) Path() string { return p.path }

// Count returns the number of selected pages.
func (p *Pages) Count() int { return len(p.indices) }

// Total returns the document's page count.
func (p *Pages) Total() int { return p.total }

// Indices returns the selected 1-based page numbers in document order.
func (p *Pages) Indices() []int { return append([]int(nil), p.indices...) }

// Render rasterizes one page into the run's scratch space. A failed render
// leaves no file behind.
func (p *Pages) Render(ctx context.Context, index int) (PageArtifact, error) {
	dst := p.run.PagePath(index)
	if err := p.src.RenderPage(ctx, index, dst); err != nil {
		p.cleaner.Remove(dst)
		return PageArtifact{}, &docerr.Error{
			Code:    docerr.CodePDFProcessing,
			Op:      "rasterize",
			Page:    index,
			Message: fmt.Sprintf("Failed to rasterize page %d", index),
			Err:     err,
		}
	}
	return PageArtifact{Index: index, Path: dst}, nil
}

// All yields the selected pages in document order, rendering each one only
// when the consumer asks for it. The sequence is single-pass and stops after
// the first error.
func (p *Pages) All(ctx context.Context) iter.Seq2[PageArtifact, error] {
	return func(yield func(PageArtifact, error) bool) {
		p.mu.Lock()
		if p.iterated || p.closed {
			p.mu.Unlock()
			yield(PageArtifact{}, docerr.New(docerr.CodePDFProcessing, "rasterize", "Page sequence already consumed"))
			return
		}
		p.iterated = true
		p.mu.Unlock()

		for _, idx := range p.indices {
			if err := ctx.Err(); err != nil {
				yield(PageArtifact{}, docerr.Wrap(docerr.CodePDFProcessing, "rasterize", err, "Failed to process PDF"))
				return
			}
			art, err := p.Render(ctx, idx)
			if !yield(art, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the document and removes the decrypted copy, if any.
func (p *Pages) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.src.Close()
	p.cleaner.Remove(p.decrypted)
	return err
}
