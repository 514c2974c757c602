// Package cloudvision implements the OCR engine on top of Google Cloud
// Vision DOCUMENT_TEXT_DETECTION.
package cloudvision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// Name identifies the engine in results and configuration.
const Name = "cloudvision"

const featureDocumentText = "DOCUMENT_TEXT_DETECTION"

// Config selects credentials and endpoint.
type Config struct {
	CredentialsFile string // service account JSON; empty uses application default credentials
	APIKey          string
	Endpoint        string // override for emulators and tests
	HTTPClient      *http.Client
	NoAuth          bool
}

// Engine calls images:annotate for each request.
type Engine struct {
	svc *vision.Service
}

// New creates the Vision client.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.NoAuth {
		opts = append(opts, option.WithoutAuthentication())
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create vision client: %w", recognizer.ErrEngineUnavailable, err)
	}
	return &Engine{svc: svc}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Close() error { return nil }

// Recognize uploads the image and returns the full text annotation. The
// confidence is the mean over detected pages.
func (e *Engine) Recognize(ctx context.Context, req recognizer.Request) (recognizer.Recognition, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	data, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return recognizer.Recognition{}, fmt.Errorf("read image: %w", err)
	}

	air := &vision.AnnotateImageRequest{
		Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []*vision.Feature{{Type: featureDocumentText}},
	}
	if hint := LanguageHint(req.Language); hint != "" {
		air.ImageContext = &vision.ImageContext{LanguageHints: []string{hint}}
	}

	progress("uploading", 0)
	resp, err := e.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{air},
	}).Context(ctx).Do()
	if err != nil {
		return recognizer.Recognition{}, fmt.Errorf("annotate image: %w", err)
	}
	progress("recognizing text", 1)

	if len(resp.Responses) == 0 {
		return recognizer.Recognition{}, errors.New("annotate image: empty response")
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return recognizer.Recognition{}, fmt.Errorf("annotate image: %s (code %d)", r.Error.Message, r.Error.Code)
	}
	if r.FullTextAnnotation == nil {
		return recognizer.Recognition{}, nil
	}

	// Vision leaves Confidence at 0 when it has none to report.
	confs := make([]float64, 0, len(r.FullTextAnnotation.Pages))
	for _, p := range r.FullTextAnnotation.Pages {
		if p.Confidence > 0 {
			confs = append(confs, p.Confidence)
		}
	}
	return recognizer.Recognition{
		Text:       r.FullTextAnnotation.Text,
		Confidence: recognizer.MeanConfidence(confs),
	}, nil
}

// LanguageHint converts a Tesseract language code such as "eng" or "deu"
// into the BCP-47 base language Vision expects. Unknown codes give "".
func LanguageHint(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
