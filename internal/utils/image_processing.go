package utils

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the size of a normalized image.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
}

// DefaultImageConstraints returns the 2000x2000 bounding box used for OCR input.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{MaxWidth: 2000, MaxHeight: 2000}
}

// FitSize computes the dimensions of a w x h image scaled to fit inside the
// constraints while preserving aspect ratio. It never scales up.
func FitSize(w, h int, c ImageConstraints) (int, int) {
	if w <= c.MaxWidth && h <= c.MaxHeight {
		return w, h
	}
	scale := math.Min(float64(c.MaxWidth)/float64(w), float64(c.MaxHeight)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return min(nw, c.MaxWidth), min(nh, c.MaxHeight)
}

// FitImage resizes img to fit the constraints using Lanczos resampling.
// Images already inside the box are returned unchanged.
func FitImage(img image.Image, c ImageConstraints) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid bounding box %dx%d", c.MaxWidth, c.MaxHeight),
		}
	}
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), c)
	if w == b.Dx() && h == b.Dy() {
		return img, nil
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// ToGray converts any image to a tightly packed 8-bit single-channel image
// anchored at the origin. StretchContrast and Threshold expect this layout.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) && g.Stride == g.Bounds().Dx() {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Histogram returns the 256-bin luminance histogram of g.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// percentile returns the smallest level whose cumulative count reaches q of total.
func percentile(hist [256]int, total int, q float64) uint8 {
	target := int(math.Ceil(q * float64(total)))
	target = max(target, 1)
	acc := 0
	for level, n := range hist {
		acc += n
		if acc >= target {
			return uint8(level)
		}
	}
	return 255
}

// StretchContrast linearly maps the [lowPct, highPct] luminance percentile
// range of g onto 0..255. Flat images are returned as an unchanged copy.
func StretchContrast(g *image.Gray, lowPct, highPct float64) *image.Gray {
	out := image.NewGray(g.Bounds())
	copy(out.Pix, g.Pix)
	total := g.Bounds().Dx() * g.Bounds().Dy()
	if total == 0 {
		return out
	}
	hist := Histogram(g)
	lo := percentile(hist, total, lowPct)
	hi := percentile(hist, total, highPct)
	if hi <= lo {
		return out
	}
	var lut [256]uint8
	span := float64(hi - lo)
	for v := range lut {
		switch {
		case v <= int(lo):
			lut[v] = 0
		case v >= int(hi):
			lut[v] = 255
		default:
			lut[v] = uint8(math.Round(float64(v-int(lo)) * 255 / span))
		}
	}
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// Threshold maps every pixel >= level to white and the rest to black.
func Threshold(g *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		if v >= level {
			out.Pix[i] = 255
		}
	}
	return out
}

// ImageQuality summarizes basic image properties.
type ImageQuality struct {
	Width       int
	Height      int
	AspectRatio float64
	IsGrayscale bool
	IsBinary    bool
	HasAlpha    bool
}

// AssessImageQuality analyzes basic image properties.
func AssessImageQuality(img image.Image) ImageQuality {
	if img == nil {
		return ImageQuality{}
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	q := ImageQuality{Width: width, Height: height}
	if height > 0 {
		q.AspectRatio = float64(width) / float64(height)
	}
	q.IsGrayscale, q.IsBinary, q.HasAlpha = analyzePixelProperties(img, bounds)
	return q
}

func analyzePixelProperties(img image.Image, bounds image.Rectangle) (gray, binary, alpha bool) {
	gray, binary = true, true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 0xffff {
				alpha = true
			}
			if r != g || g != b {
				gray = false
			}
			if r != 0 && r != 0xffff {
				binary = false
			}
		}
	}
	return gray, gray && binary, alpha
}
