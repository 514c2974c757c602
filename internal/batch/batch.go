// Package batch runs many documents through the pipeline with a bounded
// worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/mattn/go-isatty"
)

// ErrNoFiles is returned when discovery finds nothing to process.
var ErrNoFiles = errors.New("no supported files found")

// newProgress draws a progress bar on terminals. Redirected output gets
// structured log records instead.
func newProgress(out io.Writer) pipeline.ProgressCallback {
	if f, ok := out.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return pipeline.NewLogProgressCallback(slog.Default(), slog.LevelInfo, "Batch: ")
	}
	return pipeline.NewConsoleProgressCallback(out, "Processing: ")
}

// Run discovers the documents named by paths and processes them with proc.
// Progress, when enabled, is written to progressOut.
func Run(ctx context.Context, proc Processor, paths []string, cfg Config, progressOut io.Writer) (*Result, error) {
	files, err := discoverFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var progress pipeline.ProgressCallback
	if cfg.ShowProgress && !cfg.Quiet {
		progress = newProgress(progressOut)
	}

	start := time.Now()
	results, err := processFiles(ctx, proc, files, cfg, progress)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}, nil
}

// FormatResults formats the batch results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	total := len(r.Files)
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", r.Succeeded())
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if total > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per document: %v\n", (r.Duration / time.Duration(total)).Round(time.Millisecond))
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f documents/sec\n", float64(total)/secs)
	}
}
