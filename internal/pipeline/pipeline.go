// Package pipeline composes normalization, OCR, PDF rasterization and
// structured extraction into per-lane document processing runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/normalizer"
	"github.com/MeKo-Tech/doctext/internal/pdf"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/recognizer/cloudvision"
	"github.com/MeKo-Tech/doctext/internal/recognizer/tesseract"
	"github.com/MeKo-Tech/doctext/internal/scratch"
)

// OCRConfig selects and configures the OCR engine.
type OCRConfig struct {
	Engine      string // tesseract or cloudvision
	Tesseract   tesseract.Config
	CloudVision cloudvision.Config
}

// PDFConfig configures the PDF lane.
type PDFConfig struct {
	Backend      string // poppler or mupdf
	DPI          int
	PdftoppmPath string
	Password     string
	PageWorkers  int // >1 processes pages concurrently
}

// Config holds configuration for the pipeline and its components.
type Config struct {
	ProjectRoot string // base for relative input paths
	ScratchDir  string
	OCR         OCRConfig
	Extractor   recognizer.Config
	Normalizer  normalizer.Config
	PDF         PDFConfig
	Cleanup     scratch.CleanerConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	bc := pdf.DefaultBackendConfig()
	return Config{
		ScratchDir: "temp",
		OCR:        OCRConfig{Engine: tesseract.Name},
		Extractor:  recognizer.DefaultConfig(),
		Normalizer: normalizer.DefaultConfig(),
		PDF: PDFConfig{
			Backend:      pdf.BackendPoppler,
			DPI:          bc.DPI,
			PdftoppmPath: bc.PdftoppmPath,
			PageWorkers:  1,
		},
		Cleanup: scratch.DefaultCleanerConfig(),
	}
}

// Deps are the injectable collaborators. Nil fields are built from Config.
// The pipeline takes ownership of Engine and closes it.
type Deps struct {
	Engine        recognizer.Engine
	RasterBackend pdf.Backend
	Cleaner       *scratch.Cleaner

	// OnCleanupFailure is called for artifacts the default cleaner could
	// not remove. Ignored when Cleaner is set.
	OnCleanupFailure func(path string, err error)
}

// Pipeline runs documents through their lane. It is safe for concurrent use;
// runs share nothing but the scratch directory.
type Pipeline struct {
	cfg        Config
	engine     recognizer.Engine
	normalizer *normalizer.Normalizer
	extractor  *recognizer.Extractor
	rasterizer *pdf.Rasterizer
	documents  *document.Extractor
	cleaner    *scratch.Cleaner
	profiler   *Profiler
}

// New wires a pipeline from cfg and deps. deps.Engine is required.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Engine == nil {
		return nil, errors.New("pipeline: OCR engine is required")
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = DefaultConfig().ScratchDir
	}
	if cfg.PDF.PageWorkers <= 0 {
		cfg.PDF.PageWorkers = 1
	}

	backend := deps.RasterBackend
	if backend == nil {
		b, err := pdf.NewBackend(cfg.PDF.Backend, pdf.BackendConfig{
			DPI:          cfg.PDF.DPI,
			PdftoppmPath: cfg.PDF.PdftoppmPath,
		})
		if err != nil {
			return nil, fmt.Errorf("init pdf backend: %w", err)
		}
		backend = b
	}
	cleaner := deps.Cleaner
	if cleaner == nil {
		var opts []scratch.CleanerOption
		if deps.OnCleanupFailure != nil {
			opts = append(opts, scratch.WithFailureHook(deps.OnCleanupFailure))
		}
		cleaner = scratch.NewCleaner(cfg.Cleanup, opts...)
	}

	return &Pipeline{
		cfg:        cfg,
		engine:     deps.Engine,
		normalizer: normalizer.New(cfg.Normalizer),
		extractor:  recognizer.NewExtractor(deps.Engine, cfg.Extractor),
		rasterizer: pdf.NewRasterizer(backend, cleaner, pdf.Config{
			ProjectRoot: cfg.ProjectRoot,
			Password:    pdf.PasswordCredentials{UserPassword: cfg.PDF.Password},
		}),
		documents: document.NewExtractor(),
		cleaner:   cleaner,
		profiler:  &Profiler{},
	}, nil
}

// Close waits for pending cleanup retries and releases the engine.
func (p *Pipeline) Close() error {
	p.cleaner.Wait()
	if p.engine != nil {
		return p.engine.Close()
	}
	return nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Cleaner returns the shared artifact cleaner.
func (p *Pipeline) Cleaner() *scratch.Cleaner { return p.cleaner }

// Profiler returns the cumulative stage timings.
func (p *Pipeline) Profiler() *Profiler { return p.profiler }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	return map[string]any{
		"engine":       p.engine.Name(),
		"language":     p.cfg.Extractor.Language,
		"scratch_dir":  p.cfg.ScratchDir,
		"pdf_backend":  p.rasterizer.Backend().Name(),
		"page_workers": p.cfg.PDF.PageWorkers,
		"normalizer": map[string]any{
			"max_width":     p.normalizer.Config().MaxWidth,
			"max_height":    p.normalizer.Config().MaxHeight,
			"threshold":     p.normalizer.Config().Threshold,
			"sharpen_sigma": p.normalizer.Config().SharpenSigma,
		},
		"profile": p.profiler.Snapshot(),
	}
}

func (p *Pipeline) resolve(path string) string {
	if filepath.IsAbs(path) || p.cfg.ProjectRoot == "" {
		return path
	}
	return filepath.Join(p.cfg.ProjectRoot, path)
}

func (p *Pipeline) newRun() *scratch.Run { return scratch.NewRun(p.cfg.ScratchDir) }

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg  Config
	deps Deps
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFromConfig starts from an existing config.
func NewBuilderFromConfig(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithProjectRoot sets the base directory for relative input paths.
func (b *Builder) WithProjectRoot(dir string) *Builder {
	b.cfg.ProjectRoot = dir
	return b
}

// WithScratchDir sets the directory for intermediate artifacts.
func (b *Builder) WithScratchDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ScratchDir = dir
	}
	return b
}

// WithEngineName selects the OCR engine by name.
func (b *Builder) WithEngineName(name string) *Builder {
	if name != "" {
		b.cfg.OCR.Engine = name
	}
	return b
}

// WithEngine injects an already constructed engine.
func (b *Builder) WithEngine(engine recognizer.Engine) *Builder {
	b.deps.Engine = engine
	return b
}

// WithRasterBackend injects a PDF raster backend.
func (b *Builder) WithRasterBackend(backend pdf.Backend) *Builder {
	b.deps.RasterBackend = backend
	return b
}

// WithCleaner shares a cleaner with other components.
func (b *Builder) WithCleaner(c *scratch.Cleaner) *Builder {
	b.deps.Cleaner = c
	return b
}

// WithCleanupFailureHook reports artifacts that could not be removed.
func (b *Builder) WithCleanupFailureHook(fn func(path string, err error)) *Builder {
	b.deps.OnCleanupFailure = fn
	return b
}

// WithLanguage sets the OCR language.
func (b *Builder) WithLanguage(lang string) *Builder {
	if lang != "" {
		b.cfg.Extractor.Language = lang
	}
	return b
}

// WithLowConfidence sets the low-confidence warning threshold.
func (b *Builder) WithLowConfidence(th float64) *Builder {
	b.cfg.Extractor.LowConfidence = th
	return b
}

// WithImageBox sets the bounding box normalized images are fitted into.
func (b *Builder) WithImageBox(maxWidth, maxHeight int) *Builder {
	if maxWidth > 0 {
		b.cfg.Normalizer.MaxWidth = maxWidth
	}
	if maxHeight > 0 {
		b.cfg.Normalizer.MaxHeight = maxHeight
	}
	return b
}

// WithThreshold sets the binarization level.
func (b *Builder) WithThreshold(level uint8) *Builder {
	if level > 0 {
		b.cfg.Normalizer.Threshold = level
	}
	return b
}

// WithSharpenSigma sets the sharpen strength; 0 disables it.
func (b *Builder) WithSharpenSigma(sigma float64) *Builder {
	if sigma >= 0 {
		b.cfg.Normalizer.SharpenSigma = sigma
	}
	return b
}

// WithPDFBackend selects the raster backend by name.
func (b *Builder) WithPDFBackend(name string) *Builder {
	if name != "" {
		b.cfg.PDF.Backend = name
	}
	return b
}

// WithDPI sets the rasterization resolution.
func (b *Builder) WithDPI(dpi int) *Builder {
	if dpi > 0 {
		b.cfg.PDF.DPI = dpi
	}
	return b
}

// WithPDFPassword sets the user password for encrypted PDFs.
func (b *Builder) WithPDFPassword(pw string) *Builder {
	b.cfg.PDF.Password = pw
	return b
}

// WithPageWorkers sets the number of pages processed concurrently.
func (b *Builder) WithPageWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.PDF.PageWorkers = min(n, runtime.NumCPU()*4)
	}
	return b
}

// WithCleanupRetry configures locked-file cleanup retries.
func (b *Builder) WithCleanupRetry(c scratch.CleanerConfig) *Builder {
	b.cfg.Cleanup = c
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration without touching the system.
func (b *Builder) Validate() error {
	switch b.cfg.OCR.Engine {
	case tesseract.Name, cloudvision.Name:
	default:
		if b.deps.Engine == nil {
			return fmt.Errorf("unknown OCR engine %q", b.cfg.OCR.Engine)
		}
	}
	switch b.cfg.PDF.Backend {
	case "", pdf.BackendPoppler, pdf.BackendMuPDF:
	default:
		if b.deps.RasterBackend == nil {
			return fmt.Errorf("unknown pdf backend %q", b.cfg.PDF.Backend)
		}
	}
	if b.cfg.ScratchDir == "" {
		return errors.New("scratch dir is empty")
	}
	return nil
}

// Build initializes the pipeline components.
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	deps := b.deps
	if deps.Engine == nil {
		engine, err := NewEngine(ctx, b.cfg.OCR)
		if err != nil {
			return nil, fmt.Errorf("init OCR engine: %w", err)
		}
		deps.Engine = engine
	}
	p, err := New(b.cfg, deps)
	if err != nil {
		if b.deps.Engine == nil {
			_ = deps.Engine.Close()
		}
		return nil, err
	}
	return p, nil
}

// NewEngine creates the configured OCR engine.
func NewEngine(ctx context.Context, cfg OCRConfig) (recognizer.Engine, error) {
	switch cfg.Engine {
	case "", tesseract.Name:
		return tesseract.New(cfg.Tesseract)
	case cloudvision.Name:
		e, err := cloudvision.New(ctx, cfg.CloudVision)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}
