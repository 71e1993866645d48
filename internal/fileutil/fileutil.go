package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is written under a temporary name next to its destination and
// only appears at the destination path once Commit succeeds.
type AtomicFile struct {
	path    string
	tmpPath string
	file    *os.File
	done    bool
}

// CreateAtomic opens <path>.tmp for writing, replacing any stale temp file
// left by an interrupted writer.
func CreateAtomic(path string, mode os.FileMode) (*AtomicFile, error) {
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &AtomicFile{path: path, tmpPath: tmpPath, file: file}, nil
}

// Path returns the final destination path.
func (f *AtomicFile) Path() string {
	return f.path
}

func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.done {
		return 0, os.ErrClosed
	}
	return f.file.Write(p)
}

// Commit flushes the temp file to disk and renames it over the destination.
func (f *AtomicFile) Commit() error {
	if f.done {
		return os.ErrClosed
	}
	f.done = true
	if err := f.file.Sync(); err != nil {
		_ = f.file.Close()
		_ = os.Remove(f.tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.file.Close(); err != nil {
		_ = os.Remove(f.tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(f.tmpPath, f.path); err != nil {
		_ = os.Remove(f.tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit, so it can be
// deferred unconditionally.
func (f *AtomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	closeErr := f.file.Close()
	removeErr := os.Remove(f.tmpPath)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

// WriteFileAtomic writes data to path through a temp file and rename,
// creating the parent directory when needed.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := CreateAtomic(path, mode)
	if err != nil {
		return err
	}
	defer f.Abort() //nolint:errcheck
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return f.Commit()
}
