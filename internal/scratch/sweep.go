package scratch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sweep deletes regular files in dir whose modification time is older than
// maxAge. Subdirectories are left alone. It returns the number removed.
func Sweep(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			slog.Warn("Sweep could not remove stale file", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper sweeps every dir immediately and then on each interval tick
// until ctx is done.
func RunSweeper(ctx context.Context, interval, maxAge time.Duration, dirs ...string) {
	sweepAll := func() {
		for _, d := range dirs {
			n, err := Sweep(d, maxAge)
			if err != nil {
				slog.Warn("Scratch sweep failed", "dir", d, "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Swept stale artifacts", "dir", d, "removed", n)
			}
		}
	}
	sweepAll()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepAll()
		}
	}
}
