// Package pathid provides the canonical identifier for a project
// configuration file: an absolute, separator-normalized path that compares
// equal across the case-variant filesystems the build graph may run on.
package pathid

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ID is a canonical absolute path to a project configuration file. Two IDs
// are equal iff their canonical string forms are byte-equal; construct one
// only via Canonicalize or Join so that invariant holds.
type ID struct {
	path string
}

// String returns the canonical absolute path.
func (id ID) String() string {
	return id.path
}

// IsZero reports whether id is the zero value (no path set).
func (id ID) IsZero() bool {
	return id.path == ""
}

// Equal reports whether two IDs refer to the same canonical path.
func (id ID) Equal(other ID) bool {
	return id.path == other.path
}

// Dir returns the canonical ID of the directory containing this config file.
func (id ID) Dir() string {
	return filepath.Dir(id.path)
}

// Canonicalize absolute-resolves p relative to the current working
// directory, cleans and normalizes its separators, and — on filesystems
// that expose a drive-letter prefix — uppercases that prefix so that
// "c:\a\tsconfig.json" and "C:/a/tsconfig.json" canonicalize identically.
func Canonicalize(p string) (ID, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return ID{}, err
	}
	return ID{path: normalize(abs)}, nil
}

// MustCanonicalize is Canonicalize but panics on error; used for
// compile-time-known or already-validated paths in tests.
func MustCanonicalize(p string) ID {
	id, err := Canonicalize(p)
	if err != nil {
		panic(err)
	}
	return id
}

// Join canonicalizes a path resolved relative to base's directory, the way
// a reference's "path" field is resolved relative to the config that
// declares it.
func Join(base ID, rel string) (ID, error) {
	if filepath.IsAbs(rel) {
		return Canonicalize(rel)
	}
	return Canonicalize(filepath.Join(base.Dir(), rel))
}

func normalize(abs string) string {
	if runtime.GOOS == "windows" || hasDriveLetter(abs) {
		abs = strings.ReplaceAll(abs, `\`, "/")
	}
	cleaned := filepath.Clean(abs)
	cleaned = filepath.ToSlash(cleaned)
	if runtime.GOOS == "windows" || hasDriveLetter(cleaned) {
		cleaned = uppercaseDrive(cleaned)
	}
	return cleaned
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0])
}

func uppercaseDrive(p string) string {
	if !hasDriveLetter(p) {
		return p
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Exists reports whether the canonical path currently exists on disk.
func Exists(id ID) bool {
	_, err := os.Stat(id.path)
	return err == nil
}
