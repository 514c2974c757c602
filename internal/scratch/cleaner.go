package scratch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// CleanerConfig controls the deferred retry applied to locked files.
type CleanerConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultCleanerConfig retries a locked file once after one second.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{RetryAttempts: 1, RetryDelay: time.Second}
}

// Cleaner deletes transient artifacts. Deletion never fails the caller:
// missing files count as removed, locked files are retried in the background
// and anything still left is logged and counted.
type Cleaner struct {
	cfg       CleanerConfig
	remove    func(string) error
	onFailure func(path string, err error)

	wg       sync.WaitGroup
	pending  atomic.Int64
	failures atomic.Int64
}

// CleanerOption customizes a Cleaner.
type CleanerOption func(*Cleaner)

// WithFailureHook registers a callback for artifacts that could not be removed.
func WithFailureHook(fn func(path string, err error)) CleanerOption {
	return func(c *Cleaner) { c.onFailure = fn }
}

// NewCleaner creates a Cleaner.
func NewCleaner(cfg CleanerConfig, opts ...CleanerOption) *Cleaner {
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	c := &Cleaner{cfg: cfg, remove: os.Remove}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Remove deletes path. It reports whether the file is gone when Remove
// returns; false means a retry was scheduled or the removal failed.
func (c *Cleaner) Remove(path string) bool {
	if path == "" {
		return true
	}
	err := c.tryRemove(path)
	if err == nil {
		return true
	}
	if IsLockError(err) && c.cfg.RetryAttempts > 0 {
		c.pending.Add(1)
		c.wg.Add(1)
		go c.retry(path)
		slog.Debug("Scheduled cleanup retry", "path", path, "error", err)
		return false
	}
	c.fail(path, err)
	return false
}

// RemoveAll removes every path.
func (c *Cleaner) RemoveAll(paths ...string) {
	for _, p := range paths {
		c.Remove(p)
	}
}

func (c *Cleaner) tryRemove(path string) error {
	err := c.remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Cleaner) retry(path string) {
	defer c.wg.Done()
	defer c.pending.Add(-1)

	var err error
	for range c.cfg.RetryAttempts {
		time.Sleep(c.cfg.RetryDelay)
		if err = c.tryRemove(path); err == nil {
			slog.Debug("Removed artifact on retry", "path", path)
			return
		}
		if !IsLockError(err) {
			break
		}
	}
	c.fail(path, err)
}

func (c *Cleaner) fail(path string, err error) {
	c.failures.Add(1)
	slog.Warn("Failed to clean up temporary file", "path", path, "error", err)
	if c.onFailure != nil {
		c.onFailure(path, err)
	}
}

// Wait blocks until all scheduled retries have finished.
func (c *Cleaner) Wait() { c.wg.Wait() }

// Pending returns the number of retries still in flight.
func (c *Cleaner) Pending() int { return int(c.pending.Load()) }

// Failures returns how many artifacts were abandoned.
func (c *Cleaner) Failures() int { return int(c.failures.Load()) }

// windows ERROR_SHARING_VIOLATION and ERROR_LOCK_VIOLATION
const (
	winSharingViolation = 32
	winLockViolation    = 33
)

// IsLockError reports whether err means the file is temporarily held by
// another handle, which is worth retrying.
func IsLockError(err error) bool {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EBUSY) {
		return true
	}
	var errno syscall.Errno
	if runtime.GOOS == "windows" && errors.As(err, &errno) {
		return errno == winSharingViolation || errno == winLockViolation
	}
	return false
}
