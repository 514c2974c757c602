// Package normalizer converts raster inputs into the canonical OCR form:
// single-channel, contrast-stretched, sharpened, binarized and bounded in size.
package normalizer

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/scratch"
	"github.com/MeKo-Tech/doctext/internal/utils"
	"github.com/disintegration/imaging"
)

// Config holds normalization parameters.
type Config struct {
	MaxWidth       int     // bounding box width
	MaxHeight      int     // bounding box height
	Threshold      uint8   // binarization level
	SharpenSigma   float64 // 0 disables sharpening
	LowPercentile  float64 // contrast stretch lower bound, 0..1
	HighPercentile float64 // contrast stretch upper bound, 0..1
}

// DefaultConfig returns the canonical OCR normalization settings.
func DefaultConfig() Config {
	c := utils.DefaultImageConstraints()
	return Config{
		MaxWidth:       c.MaxWidth,
		MaxHeight:      c.MaxHeight,
		Threshold:      128,
		SharpenSigma:   1.0,
		LowPercentile:  0.01,
		HighPercentile: 0.99,
	}
}

// NormalizedImage is a canonical raster written to the run's scratch space.
type NormalizedImage struct {
	Path string
	Page int // 1-based origin page, 0 for standalone images
}

// Normalizer applies the fixed normalization chain.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer. Zero-valued fields fall back to defaults.
func New(cfg Config) *Normalizer {
	d := DefaultConfig()
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = d.MaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = d.MaxHeight
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = d.Threshold
	}
	if cfg.HighPercentile <= cfg.LowPercentile || cfg.HighPercentile > 1 {
		cfg.LowPercentile, cfg.HighPercentile = d.LowPercentile, d.HighPercentile
	}
	return &Normalizer{cfg: cfg}
}

// Config returns the effective configuration.
func (n *Normalizer) Config() Config { return n.cfg }

// Normalize reads inputPath, runs the chain and writes a grayscale PNG into
// run's scratch directory. Any failure is an IMAGE_PROCESSING_ERROR and
// leaves no output behind.
func (n *Normalizer) Normalize(ctx context.Context, run *scratch.Run, inputPath string, page int) (NormalizedImage, error) {
	if err := ctx.Err(); err != nil {
		return NormalizedImage{}, docerr.Wrap(docerr.CodeImageProcessing, "normalize", err, "Failed to process image")
	}

	src, meta, err := utils.LoadImage(inputPath)
	if err != nil {
		return NormalizedImage{}, docerr.Wrap(docerr.CodeImageProcessing, "normalize", err, "Failed to process image")
	}

	out, err := n.Apply(src)
	if err != nil {
		return NormalizedImage{}, docerr.Wrap(docerr.CodeImageProcessing, "normalize", err, "Failed to process image")
	}

	dst := run.NormalizedPath()
	if err := utils.SavePNG(out, dst); err != nil {
		return NormalizedImage{}, docerr.Wrap(docerr.CodeImageProcessing, "normalize", err, "Failed to process image")
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		q := utils.AssessImageQuality(src)
		b := out.Bounds()
		slog.Debug("Normalized image",
			"input", inputPath, "output", dst, "page", page,
			"src_format", meta.Format, "src_width", meta.Width, "src_height", meta.Height,
			"src_grayscale", q.IsGrayscale, "src_binary", q.IsBinary, "src_alpha", q.HasAlpha,
			"width", b.Dx(), "height", b.Dy())
	}
	return NormalizedImage{Path: dst, Page: page}, nil
}

// Apply runs the in-memory stages in their fixed order: grayscale, contrast
// stretch, sharpen, threshold, fit.
func (n *Normalizer) Apply(src image.Image) (*image.Gray, error) {
	if src == nil {
		return nil, &utils.ImageProcessingError{Operation: "normalize", Err: fmt.Errorf("nil image")}
	}
	gray := utils.ToGray(imaging.Grayscale(src))
	gray = utils.StretchContrast(gray, n.cfg.LowPercentile, n.cfg.HighPercentile)
	if n.cfg.SharpenSigma > 0 {
		gray = utils.ToGray(imaging.Sharpen(gray, n.cfg.SharpenSigma))
	}
	gray = utils.Threshold(gray, n.cfg.Threshold)

	fitted, err := utils.FitImage(gray, utils.ImageConstraints{MaxWidth: n.cfg.MaxWidth, MaxHeight: n.cfg.MaxHeight})
	if err != nil {
		return nil, err
	}
	return utils.ToGray(fitted), nil
}
