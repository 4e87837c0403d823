package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// MB is one megabyte, the unit of the log.max-size-mb option.
const MB = 1 << 20

// RotatingFileWriter is an io.WriteCloser with size-based rotation. Before a
// write that would take the file past its limit, the file is renamed to
// <path>.1, existing backups shift up by one, and backups beyond the
// retention count are removed. A single write is never split across files.
//
// Safe for concurrent use.
type RotatingFileWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	size     int64
	file     *os.File
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)

// NewRotatingFileWriter opens path for appending, creating it and its parent
// directory as needed. maxBytes below one is treated as one MB; backups below
// zero as zero, which truncates on rotation.
func NewRotatingFileWriter(path string, maxBytes int64, backups int) (*RotatingFileWriter, error) {
	if maxBytes < 1 {
		maxBytes = MB
	}
	backups = max(backups, 0)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("logging: mkdir %s: %w", dir, err)
		}
	}

	w := &RotatingFileWriter{path: path, maxBytes: maxBytes, backups: backups}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logging: open %s: %w", w.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("logging: stat %s: %w", w.path, err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("logging: rotate %s: %w", w.path, err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close implements io.Closer. Further writes fail with os.ErrClosed.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate must be called with mu held.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	existing := w.existingBackups()
	slices.Reverse(existing)
	for _, n := range existing {
		if n >= w.backups {
			_ = os.Remove(w.backupPath(n))
		} else {
			_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
		}
	}

	if w.backups > 0 {
		_ = os.Rename(w.path, w.backupPath(1))
	} else {
		_ = os.Remove(w.path)
	}

	return w.open()
}

func (w *RotatingFileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// existingBackups returns the backup numbers present on disk, ascending.
func (w *RotatingFileWriter) existingBackups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n >= 1 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}
