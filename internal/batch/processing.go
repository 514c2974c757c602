package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, doc pipeline.SourceDocument, opts ...pipeline.Option) (pipeline.Result, error)
}

// processFiles runs files through proc with at most workers in flight.
// Without continueOnError the first failure cancels the remaining files.
func processFiles(ctx context.Context, proc Processor, files []string, cfg Config,
	progress pipeline.ProgressCallback) ([]FileResult, error) {
	results := make([]FileResult, len(files))
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	done := 0
	if progress != nil {
		progress.OnStart(len(files))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{Path: path, Err: err}
				return nil
			}
			res, err := processFile(gctx, proc, path, cfg.Options)
			results[i] = FileResult{Path: path, Result: res, Err: err}

			mu.Lock()
			done++
			if progress != nil {
				if err != nil {
					progress.OnError(i+1, err)
				}
				progress.OnProgress(done, len(files))
			}
			mu.Unlock()

			if err != nil {
				if !cfg.ContinueOnError {
					return fmt.Errorf("%s: %w", path, err)
				}
				slog.Warn("Document failed, continuing", "file", path, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress.OnComplete()
	}
	return results, nil
}

func processFile(ctx context.Context, proc Processor, path string, opts []pipeline.Option) (*pipeline.Result, error) {
	doc := pipeline.SourceDocument{Path: path}
	if info, err := os.Stat(path); err == nil {
		doc.Size = info.Size()
	}
	res, err := proc.Process(ctx, doc, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("Processed document", "file", path, "lane", res.Lane, "run_id", res.RunID, "chars", len(res.Text))
	return &res, nil
}
