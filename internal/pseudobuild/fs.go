package pseudobuild

import "time"

// FileSystem abstracts the filesystem operations the pseudo-builder needs,
// so tests can drive it without real disk mtime races. The production
// implementation is diskfs.FileSystem in internal/diskfs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	// Stat reports a file's current mtime, size, and whether it exists.
	Stat(path string) (mtime time.Time, size int64, exists bool, err error)
	// SetMtime updates a file's modification time ("touch").
	SetMtime(path string, t time.Time) error
}
