// Package tesseract provides the local OCR engine backed by libtesseract
// through gosseract.
//
// The default build links no OCR library so the module builds without CGO.
// Enable the engine with the build tag `tesseract`:
//
//	go build -tags=tesseract ./...
package tesseract

import (
	"fmt"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
)

// Name identifies the engine in results and configuration.
const Name = "tesseract"

// ErrUnavailable is returned by New when the binary was built without
// the tesseract tag.
var ErrUnavailable = fmt.Errorf("%w: build with -tags=tesseract to link libtesseract", recognizer.ErrEngineUnavailable)

// Config tunes the Tesseract client.
type Config struct {
	PageSegMode int               // tesseract --psm value, 0 keeps the library default
	Variables   map[string]string // extra SetVariable pairs
}
