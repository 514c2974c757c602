//go:build !tesseract

package tesseract

import "github.com/MeKo-Tech/doctext/internal/recognizer"

// New reports ErrUnavailable in builds without libtesseract.
func New(Config) (recognizer.Engine, error) { return nil, ErrUnavailable }
