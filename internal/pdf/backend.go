package pdf

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned when a raster backend is not compiled in
// or its external tool cannot be found.
var ErrBackendUnavailable = errors.New("pdf raster backend unavailable")

// Backend names accepted by NewBackend.
const (
	BackendPoppler = "poppler"
	BackendMuPDF   = "mupdf"
)

// Backend opens documents for rendering.
type Backend interface {
	Name() string
	Open(ctx context.Context, path string) (Source, error)
}

// Source is an opened document.
type Source interface {
	// PageCount returns the number of pages.
	PageCount() int
	// RenderPage writes the 1-based page as a PNG at its native size scaled
	// by the backend DPI.
	RenderPage(ctx context.Context, index int, dst string) error
	Close() error
}

// BackendConfig configures the raster backends.
type BackendConfig struct {
	DPI          int    // 72 renders one pixel per point
	PdftoppmPath string // defaults to "pdftoppm" on PATH
}

// DefaultBackendConfig renders at native page size.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{DPI: 72, PdftoppmPath: "pdftoppm"}
}

// NewBackend returns the named backend.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	if cfg.DPI <= 0 {
		cfg.DPI = 72
	}
	switch name {
	case "", BackendPoppler:
		return NewPopplerBackend(cfg), nil
	case BackendMuPDF:
		return newMuPDFBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown pdf backend %q", name)
	}
}
