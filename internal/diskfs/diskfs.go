// Package diskfs is the real-disk implementation of the small filesystem
// interfaces the analyzer and pseudo-builder depend on (analyzer.Clock,
// pseudobuild.FileSystem). Everything else in pbuild talks to those
// interfaces, not to os directly, so tests can substitute an in-memory fake.
package diskfs

import (
	"os"
	"path/filepath"
	"time"
)

// Clock is the production analyzer.Clock.
type Clock struct{}

// NewClock returns a ready-to-use disk-backed mtime clock.
func NewClock() Clock { return Clock{} }

// Stat implements analyzer.Clock.
func (Clock) Stat(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return info.ModTime(), true, nil
}

// FileSystem is the production pseudobuild.FileSystem.
type FileSystem struct{}

// NewFileSystem returns a ready-to-use disk-backed filesystem adapter.
func NewFileSystem() FileSystem { return FileSystem{} }

// ReadFile implements pseudobuild.FileSystem.
func (FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile implements pseudobuild.FileSystem, creating parent directories
// as needed.
func (FileSystem) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Stat implements pseudobuild.FileSystem.
func (FileSystem) Stat(path string) (time.Time, int64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, 0, false, nil
		}
		return time.Time{}, 0, false, err
	}
	return info.ModTime(), info.Size(), true, nil
}

// SetMtime implements pseudobuild.FileSystem.
func (FileSystem) SetMtime(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
