package batch

import (
	"time"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	ShowProgress bool
	Quiet        bool
	ShowStats    bool

	// Options are applied to every document.
	Options []pipeline.Option
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		Recursive: true,
		Format:    pipeline.FormatText,
	}
}

// FileResult is the outcome of one discovered file. Exactly one of Result and
// Err is set.
type FileResult struct {
	Path   string
	Result *pipeline.Result
	Err    error
}

// Result holds the result of batch processing in discovery order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Succeeded returns the number of files that produced text.
func (r *Result) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed.
func (r *Result) Failed() int { return len(r.Files) - r.Succeeded() }
