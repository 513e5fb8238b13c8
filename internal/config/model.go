// Package config defines the format-agnostic representation of a project
// configuration and the Loader interface external parsers implement to
// produce it. Parsing itself — reading and validating the on-disk
// configuration-file syntax — is an external collaborator's responsibility;
// this package only defines the shape of its output.
package config

import "github.com/vk/pbuild/internal/pathid"

// WatchMode describes how a wildcard directory should be observed.
type WatchMode int

const (
	// WatchFlat watches only direct entries of a directory.
	WatchFlat WatchMode = iota
	// WatchRecursive watches a directory and all of its descendants.
	WatchRecursive
)

// Reference is a declared build-order dependency from one project onto
// another, optionally requesting that the target's emitted output be
// prepended into this project's own concatenated bundle.
type Reference struct {
	Target  pathid.ID
	Prepend bool
}

// ProjectConfig is the parsed, format-agnostic description of a single
// project. It carries only what the hard core needs: the compiler's own
// options beyond these four are opaque to pbuild.
type ProjectConfig struct {
	// InputFiles is the ordered list of absolute source paths this project
	// compiles. Empty means this is a zero-input "solution" aggregator.
	InputFiles []string

	// References is the ordered list of build-order dependencies.
	References []Reference

	// OutDir is the directory per-input outputs are written under. Mutually
	// exclusive with OutFile.
	OutDir string
	// OutFile is the single concatenated bundle this project emits.
	// Mutually exclusive with OutDir.
	OutFile string
	// RootDir is subtracted from each input path before it is rebased under
	// OutDir. When unset, each input's base name alone is placed under
	// OutDir.
	RootDir string

	// Declaration, when true, requests emission of ".d.ts" declaration
	// outputs alongside compiled outputs.
	Declaration bool

	// WildcardDirectories maps a directory path to how it should be
	// watched: flat (direct entries only) or recursive.
	WildcardDirectories map[string]WatchMode

	// Extends, if set, names another config file whose options are used as
	// defaults before this file's own options are applied. Resolved by the
	// loader; a project's InputFiles/References/OutDir/etc. reflect the
	// already-merged result by the time an Analyzer sees them.
	Extends string
}

// UsesOutFile reports whether this project emits a single concatenated
// bundle rather than per-input files.
func (c *ProjectConfig) UsesOutFile() bool {
	return c.OutFile != ""
}

// HasPrependReference reports whether any reference requests concatenation,
// which routes the pseudo-builder down the bundle-reconstruction branch.
func (c *ProjectConfig) HasPrependReference() bool {
	for _, ref := range c.References {
		if ref.Prepend {
			return true
		}
	}
	return false
}

// IsSolution reports whether this project declares no inputs at all. Such a
// project produces no artifacts and is always up-to-date; it exists purely
// to aggregate references into a single build root.
func (c *ProjectConfig) IsSolution() bool {
	return len(c.InputFiles) == 0
}
