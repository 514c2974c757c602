package scratch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestRun_PathsAreUniqueAndScoped(t *testing.T) {
	dir := t.TempDir()
	a, b := NewRun(dir), NewRun(dir)
	require.NotEqual(t, a.ID, b.ID)

	p1, p2 := a.NormalizedPath(), a.NormalizedPath()
	assert.NotEqual(t, p1, p2)
	assert.True(t, strings.HasPrefix(filepath.Base(p1), a.ID+"-normalized-"))
	assert.Equal(t, filepath.Join(dir, a.ID+"-page-3.png"), a.PagePath(3))
	assert.NotEqual(t, a.PagePath(1), b.PagePath(1))
	assert.Equal(t, filepath.Join(dir, a.ID+"-doc.pdf"), a.FilePath("/elsewhere/doc.pdf"))
}

func TestRun_Artifacts(t *testing.T) {
	dir := t.TempDir()
	r := NewRun(dir)
	other := NewRun(dir)
	touch(t, r.PagePath(1))
	touch(t, r.NormalizedPath())
	touch(t, other.PagePath(1))

	got, err := r.Artifacts()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	up := filepath.Join(root, "uploads")
	tmp := filepath.Join(root, "a", "temp")
	require.NoError(t, EnsureDirs(up, "", tmp))
	assert.DirExists(t, up)
	assert.DirExists(t, tmp)
	// Idempotent.
	require.NoError(t, EnsureDirs(up, tmp))
}

func TestCleaner_RemovesAndToleratesMissing(t *testing.T) {
	c := NewCleaner(DefaultCleanerConfig())
	p := filepath.Join(t.TempDir(), "artifact.png")
	touch(t, p)

	assert.True(t, c.Remove(p))
	assert.NoFileExists(t, p)
	assert.True(t, c.Remove(p), "missing file counts as removed")
	assert.True(t, c.Remove(""))
	assert.Zero(t, c.Failures())
}

func TestCleaner_RetriesLockedFile(t *testing.T) {
	var calls atomic.Int32
	c := NewCleaner(CleanerConfig{RetryAttempts: 1, RetryDelay: 10 * time.Millisecond})
	c.remove = func(string) error {
		if calls.Add(1) == 1 {
			return &fs.PathError{Op: "remove", Path: "x", Err: syscall.EPERM}
		}
		return nil
	}

	assert.False(t, c.Remove("x"))
	c.Wait()
	assert.EqualValues(t, 2, calls.Load())
	assert.Zero(t, c.Failures())
	assert.Zero(t, c.Pending())
}

func TestCleaner_AbandonsAfterRetries(t *testing.T) {
	var mu sync.Mutex
	var failed []string
	c := NewCleaner(
		CleanerConfig{RetryAttempts: 2, RetryDelay: time.Millisecond},
		WithFailureHook(func(path string, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, path)
		}),
	)
	var calls atomic.Int32
	c.remove = func(string) error {
		calls.Add(1)
		return syscall.EBUSY
	}

	c.Remove("locked.png")
	c.Wait()
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 1, c.Failures())
	assert.Equal(t, []string{"locked.png"}, failed)
}

func TestCleaner_NonLockErrorIsNotRetried(t *testing.T) {
	c := NewCleaner(DefaultCleanerConfig())
	var calls atomic.Int32
	c.remove = func(string) error {
		calls.Add(1)
		return errors.New("io failure")
	}
	assert.False(t, c.Remove("p"))
	c.Wait()
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, c.Failures())
}

func TestCleaner_ZeroRetries(t *testing.T) {
	c := NewCleaner(CleanerConfig{RetryAttempts: 0})
	c.remove = func(string) error { return fs.ErrPermission }
	assert.False(t, c.Remove("p"))
	assert.Zero(t, c.Pending())
	assert.Equal(t, 1, c.Failures())
}

func TestIsLockError(t *testing.T) {
	assert.True(t, IsLockError(fs.ErrPermission))
	assert.True(t, IsLockError(&fs.PathError{Op: "remove", Err: syscall.EACCES}))
	assert.True(t, IsLockError(fmt.Errorf("wrapped: %w", syscall.EBUSY)))
	assert.False(t, IsLockError(fs.ErrNotExist))
	assert.False(t, IsLockError(errors.New("other")))
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	fresh := filepath.Join(dir, "fresh.png")
	touch(t, old)
	touch(t, fresh)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	n, err := Sweep(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "sub"))

	n, err = Sweep(filepath.Join(dir, "missing"), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	touch(t, old)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, 5*time.Millisecond, time.Minute, dir)
		close(done)
	}()
	assert.Eventually(t, func() bool {
		_, err := os.Stat(old)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
