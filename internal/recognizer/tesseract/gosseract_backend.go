//go:build tesseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/otiai10/gosseract/v2"
)

// Engine runs Tesseract through a fresh gosseract client per call.
type Engine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

// New returns the libtesseract-backed engine.
func New(cfg Config) (recognizer.Engine, error) {
	return &Engine{cfg: cfg, clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Close() error { return nil }

// Recognize reads req.ImagePath and returns the recognized text and the mean
// word confidence.
func (e *Engine) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return recognizer.Recognition{}, err
	}
	progress := req.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImage(req.ImagePath); err != nil {
		return recognizer.Recognition{}, fmt.Errorf("set image: %w", err)
	}
	if req.Language != "" {
		if err := c.SetLanguage(req.Language); err != nil {
			return recognizer.Recognition{}, fmt.Errorf("set language: %w", err)
		}
	}
	if e.cfg.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PageSegMode)); err != nil {
			return recognizer.Recognition{}, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	for k, v := range e.cfg.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return recognizer.Recognition{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	progress("recognizing text", 0)
	text, err := c.Text()
	if err != nil {
		return recognizer.Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return recognizer.Recognition{}, err
	}
	progress("recognizing text", 1)

	return recognizer.Recognition{Text: text, Confidence: wordConfidence(c)}, nil
}

func wordConfidence(c *gosseract.Client) *float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	confs := make([]float64, 0, len(boxes))
	for _, b := range boxes {
		confs = append(confs, b.Confidence/100.0)
	}
	return recognizer.MeanConfidence(confs)
}
