package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/scratch"
)

// ErrUnsupportedMediaType is returned by Process for inputs no lane accepts.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

var extensionTypes = map[string]MediaType{
	".png":  MediaPNG,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
	".bmp":  MediaBMP,
	".tif":  MediaTIFF,
	".tiff": MediaTIFF,
	".webp": MediaWebP,
	".pdf":  MediaPDF,
	".docx": MediaDOCX,
	".xlsx": MediaXLSX,
	".xls":  MediaXLS,
}

// SupportedExtensions lists the file extensions Process can route.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		out = append(out, ext)
	}
	return out
}

// Route returns the lane for a media type. kind is set for the structured lane.
func Route(mt MediaType) (Lane, document.Kind, error) {
	switch mt {
	case MediaPNG, MediaJPEG, MediaBMP, MediaTIFF, MediaWebP:
		return LaneImage, "", nil
	case MediaPDF:
		return LanePDF, "", nil
	case MediaDOCX:
		return LaneStructured, document.KindDOCX, nil
	case MediaXLSX, MediaXLS:
		return LaneStructured, document.KindXLSX, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mt)
}

// ParseMediaType strips parameters and lowercases a Content-Type value.
func ParseMediaType(s string) MediaType {
	if s == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType(strings.ToLower(strings.TrimSpace(s)))
	}
	return MediaType(mt)
}

// DetectMediaType determines a document's type from the declared value,
// then the file extension, then the leading bytes.
func DetectMediaType(path string, declared MediaType) MediaType {
	if declared != "" && declared != "application/octet-stream" {
		if _, _, err := Route(declared); err == nil {
			return declared
		}
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return sniff(path)
}

func sniff(path string) MediaType {
	f, err := os.Open(path) //nolint:gosec // G304: caller supplies the document path
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ""
	}
	return ParseMediaType(http.DetectContentType(buf[:n]))
}

// Process routes doc to its lane and returns the lane-independent result.
// Unexpected failures, panics included, are returned as INTERNAL_ERROR.
func (p *Pipeline) Process(ctx context.Context, doc SourceDocument, opts ...Option) (res Result, err error) {
	start := time.Now()
	run := p.newRun()
	o := collectOptions(opts)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panic", "path", doc.Path, "run_id", run.ID, "panic", r, "stack", string(debug.Stack()))
			res, err = Result{}, docerr.Internal("process", fmt.Errorf("panic: %v", r))
		}
		if err != nil && !errors.Is(err, ErrUnsupportedMediaType) {
			err = docerr.Internal("process", err)
		}
		if docerr.IsCode(err, docerr.CodeInternal) {
			p.sweep(run)
		}
	}()

	path := p.resolve(doc.Path)
	mt := DetectMediaType(path, ParseMediaType(string(doc.MediaType)))
	var (
		lane Lane
		kind document.Kind
	)
	if o.kind != "" {
		lane, kind = LaneStructured, o.kind
	} else if lane, kind, err = Route(mt); err != nil {
		return Result{}, err
	}
	if lane == LanePDF && o.preferText {
		lane, kind = LaneStructured, document.KindPDF
	}

	slog.Debug("Processing document", "path", path, "media_type", mt, "lane", lane, "run_id", run.ID, "size", doc.Size)
	res = Result{Lane: lane, MediaType: mt, RunID: run.ID}

	switch lane {
	case LaneImage:
		var r recognizer.ExtractionResult
		r, err = p.processImage(ctx, run, path, o)
		p.profiler.recordDocument(1, err)
		res.Text, res.Confidence, res.LowConfidence, res.PageCount = r.Text, r.Confidence, r.LowConfidence, 1
	case LanePDF:
		var agg AggregateResult
		agg, err = p.processPDF(ctx, run, doc.Path, o)
		p.profiler.recordDocument(agg.PageCount, err)
		res.Text, res.Confidence, res.LowConfidence, res.PageCount = agg.Text, agg.Confidence, len(agg.LowPages) > 0, agg.PageCount
	case LaneStructured:
		var d document.Result
		d, err = p.ProcessStructuredDocument(ctx, path, kind)
		res.Text, res.Sheets = d.Text, d.Sheets
	}
	if err != nil {
		return Result{}, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// sweep removes whatever a failed run left in the scratch dir, such as files
// an engine wrote next to its input before it crashed.
func (p *Pipeline) sweep(run *scratch.Run) {
	left, err := run.Artifacts()
	if err != nil || len(left) == 0 {
		return
	}
	slog.Debug("Removing leftover run artifacts", "run_id", run.ID, "count", len(left))
	p.cleaner.RemoveAll(left...)
}
