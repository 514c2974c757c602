package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	// ScanSize exceeds the 2000x2000 normalization box on both axes.
	ScanSize = ImageSize{2480, 3508}
)

// TestImageConfig holds configuration for generating test images.
type TestImageConfig struct {
	Text       string // newlines start a new line
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
}

// DefaultTestImageConfig returns a default configuration for test images.
func DefaultTestImageConfig() TestImageConfig {
	return TestImageConfig{
		Text:       "Sample Text",
		Size:       MediumSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateTextImage renders config.Text centered on a solid background.
func GenerateTextImage(config TestImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}
	lines := strings.Split(config.Text, "\n")
	lineHeight := config.FontFace.Metrics().Height.Ceil()
	startY := (config.Size.Height - len(lines)*lineHeight) / 2
	for i, line := range lines {
		w := font.MeasureString(config.FontFace, line).Ceil()
		drawer.Dot = fixed.P((config.Size.Width-w)/2, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// CreateTestImage creates a solid image with the specified dimensions and color.
func CreateTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// SaveImage writes img to path, choosing the encoder from the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() { require.NoError(t, f.Close()) }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	require.NoError(t, err, "Failed to encode image %s", path)
}

// WriteTextImage renders text into a new image file under dir and returns its path.
func WriteTextImage(t *testing.T, dir, name, text string, size ImageSize) string {
	t.Helper()

	cfg := DefaultTestImageConfig()
	cfg.Text = text
	cfg.Size = size
	path := filepath.Join(dir, name)
	SaveImage(t, GenerateTextImage(cfg), path)
	return path
}

// WriteBlankImage writes a solid white image and returns its path.
func WriteBlankImage(t *testing.T, dir, name string, size ImageSize) string {
	t.Helper()

	path := filepath.Join(dir, name)
	SaveImage(t, CreateTestImage(size.Width, size.Height, color.White), path)
	return path
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // G304: test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	require.NoError(t, err, "Failed to decode image")
	return img
}
