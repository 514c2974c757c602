// Package scratch owns the temporary-file namespace of a pipeline run and
// the best-effort cleanup policy applied to its artifacts.
//
// Every run gets a unique ID; artifact names are prefixed with it so
// concurrent runs sharing one scratch directory never collide.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Run is the scratch namespace of one pipeline invocation.
type Run struct {
	ID  string
	Dir string
	seq atomic.Int64
}

// NewRun allocates a run with a fresh ID under dir.
func NewRun(dir string) *Run {
	return &Run{ID: uuid.NewString(), Dir: dir}
}

// NormalizedPath returns a new, unique path for a normalized image.
func (r *Run) NormalizedPath() string {
	n := r.seq.Add(1)
	return filepath.Join(r.Dir, fmt.Sprintf("%s-normalized-%d.png", r.ID, n))
}

// PagePath returns the raster path for the 1-based page index.
func (r *Run) PagePath(index int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("%s-page-%d.png", r.ID, index))
}

// FilePath returns a run-scoped path for an auxiliary artifact such as a
// decrypted copy of the input.
func (r *Run) FilePath(name string) string {
	return filepath.Join(r.Dir, r.ID+"-"+filepath.Base(name))
}

// Artifacts lists the files currently present in the scratch dir that
// belong to this run.
func (r *Run) Artifacts() ([]string, error) {
	return filepath.Glob(filepath.Join(r.Dir, r.ID+"-*"))
}

// EnsureDirs creates each directory (and parents) if missing.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}
