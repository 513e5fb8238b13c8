// Package jsonconfig is the default config.Loader implementation. Project
// configuration files are JSON documents shaped like tsconfig.json; parsing
// that fixed, known shape is done with the standard library encoding/json
// rather than a third-party decoder (see DESIGN.md).
package jsonconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/pathid"
)

// rawReference is one entry of a config's "references" array.
type rawReference struct {
	Path    string `json:"path"`
	Prepend bool   `json:"prepend,omitempty"`
}

type rawCompilerOptions struct {
	OutDir      string `json:"outDir,omitempty"`
	OutFile     string `json:"outFile,omitempty"`
	RootDir     string `json:"rootDir,omitempty"`
	Declaration bool   `json:"declaration,omitempty"`
}

type rawConfig struct {
	Extends         string              `json:"extends,omitempty"`
	Files           []string            `json:"files,omitempty"`
	Include         []string            `json:"include,omitempty"`
	Exclude         []string            `json:"exclude,omitempty"`
	References      []rawReference      `json:"references,omitempty"`
	CompilerOptions rawCompilerOptions  `json:"compilerOptions,omitempty"`
	WildcardModes   map[string]string   `json:"watchDirectories,omitempty"`
}

// Loader parses tsconfig.json-shaped project configuration files.
type Loader struct{}

// New returns a ready-to-use JSON config loader.
func New() *Loader {
	return &Loader{}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, id pathid.ID) (*config.ProjectConfig, error) {
	raw, err := l.loadRaw(id)
	if err != nil {
		return nil, err
	}

	if raw.Extends != "" {
		parentID, err := pathid.Join(id, raw.Extends)
		if err != nil {
			return nil, fmt.Errorf("resolving extends of %s: %w", id, err)
		}
		parentRaw, err := l.loadRaw(parentID)
		if err != nil {
			return nil, fmt.Errorf("loading %s (extended by %s): %w", parentID, id, err)
		}
		raw = mergeExtends(parentRaw, raw)
	}

	return l.materialize(id, raw)
}

func (l *Loader) loadRaw(id pathid.ID) (rawConfig, error) {
	target := id
	if info, statErr := os.Stat(id.String()); statErr == nil && info.IsDir() {
		joined, err := pathid.Join(id, config.DefaultConfigFilename)
		if err != nil {
			return rawConfig{}, err
		}
		target = joined
	}

	data, err := os.ReadFile(target.String())
	if err != nil {
		return rawConfig{}, fmt.Errorf("reading config %s: %w", target, err)
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawConfig{}, fmt.Errorf("parsing config %s: %w", target, err)
	}
	return raw, nil
}

// mergeExtends applies parent as defaults, then overlays child's own fields.
func mergeExtends(parent, child rawConfig) rawConfig {
	merged := parent
	if len(child.Files) > 0 {
		merged.Files = child.Files
	}
	if len(child.Include) > 0 {
		merged.Include = child.Include
	}
	if len(child.Exclude) > 0 {
		merged.Exclude = child.Exclude
	}
	if len(child.References) > 0 {
		merged.References = child.References
	}
	if child.CompilerOptions.OutDir != "" {
		merged.CompilerOptions.OutDir = child.CompilerOptions.OutDir
	}
	if child.CompilerOptions.OutFile != "" {
		merged.CompilerOptions.OutFile = child.CompilerOptions.OutFile
	}
	if child.CompilerOptions.RootDir != "" {
		merged.CompilerOptions.RootDir = child.CompilerOptions.RootDir
	}
	if child.CompilerOptions.Declaration {
		merged.CompilerOptions.Declaration = child.CompilerOptions.Declaration
	}
	merged.Extends = "" // already resolved
	return merged
}

func (l *Loader) materialize(id pathid.ID, raw rawConfig) (*config.ProjectConfig, error) {
	// Compiler-option paths are relative to the config file's directory.
	resolvePath := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(id.Dir(), p)
	}
	cfg := &config.ProjectConfig{
		OutDir:      resolvePath(raw.CompilerOptions.OutDir),
		OutFile:     resolvePath(raw.CompilerOptions.OutFile),
		RootDir:     resolvePath(raw.CompilerOptions.RootDir),
		Declaration: raw.CompilerOptions.Declaration,
	}
	if cfg.OutFile != "" && cfg.OutDir != "" {
		return nil, fmt.Errorf("config %s: outFile and outDir are mutually exclusive", id)
	}

	inputs, wildcards, err := resolveInputs(id, raw)
	if err != nil {
		return nil, err
	}
	cfg.InputFiles = inputs
	cfg.WildcardDirectories = wildcards

	for _, ref := range raw.References {
		targetID, err := pathid.Join(id, ref.Path)
		if err != nil {
			return nil, fmt.Errorf("config %s: resolving reference %q: %w", id, ref.Path, err)
		}
		cfg.References = append(cfg.References, config.Reference{
			Target:  targetID,
			Prepend: ref.Prepend,
		})
	}

	return cfg, nil
}

// resolveInputs turns the "files"/"include"/"exclude" trio into an ordered,
// deduplicated set of absolute input paths, plus the wildcard directories a
// watcher should later observe.
func resolveInputs(id pathid.ID, raw rawConfig) ([]string, map[string]config.WatchMode, error) {
	base := id.Dir()
	seen := make(map[string]bool)
	var inputs []string

	addFile := func(p string) {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(base, abs)
		}
		abs = filepath.Clean(abs)
		if !seen[abs] {
			seen[abs] = true
			inputs = append(inputs, abs)
		}
	}

	for _, f := range raw.Files {
		addFile(f)
	}

	wildcards := make(map[string]config.WatchMode)
	if len(raw.Include) > 0 {
		excluded, err := compileExcludes(base, raw.Exclude)
		if err != nil {
			return nil, nil, err
		}
		for _, pattern := range raw.Include {
			dir := filepath.Join(base, wildcardRoot(pattern))
			mode := config.WatchRecursive
			if m, ok := raw.WildcardModes[pattern]; ok && m == "flat" {
				mode = config.WatchFlat
			}
			wildcards[filepath.Clean(dir)] = mode

			matches, err := expandInclude(base, pattern)
			if err != nil {
				return nil, nil, fmt.Errorf("config %s: expanding include %q: %w", id, pattern, err)
			}
			for _, m := range matches {
				if excluded(m) {
					continue
				}
				addFile(m)
			}
		}
	}

	sort.Strings(inputs) // deterministic across platforms; ordering within files/include is not semantically load-bearing
	return dedupPreserveFileOrder(raw, inputs, base), wildcards, nil
}

// dedupPreserveFileOrder keeps explicit "files" entries first, in their
// declared order, followed by the (sorted) include-expanded remainder —
// matching the intuition that explicit files are the authoritative ordering
// signal while glob expansion has no natural order of its own.
func dedupPreserveFileOrder(raw rawConfig, sortedAll []string, base string) []string {
	if len(raw.Files) == 0 {
		return sortedAll
	}
	explicit := make(map[string]bool, len(raw.Files))
	var ordered []string
	for _, f := range raw.Files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(base, abs)
		}
		abs = filepath.Clean(abs)
		explicit[abs] = true
		ordered = append(ordered, abs)
	}
	for _, p := range sortedAll {
		if !explicit[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// wildcardRoot returns the directory portion of a glob pattern that
// precedes its first wildcard character, the directory a watcher should
// observe for that pattern.
func wildcardRoot(pattern string) string {
	clean := filepath.ToSlash(pattern)
	idx := len(clean)
	for i, r := range clean {
		if r == '*' || r == '?' || r == '[' {
			idx = i
			break
		}
	}
	root := clean[:idx]
	if root == "" {
		return "."
	}
	return filepath.FromSlash(filepath.Dir(root + "x"))
}

// expandInclude walks base for files matching pattern (a "**"-aware glob
// relative to base), using only the standard library: filepath.WalkDir plus
// filepath.Match per path segment.
func expandInclude(base, pattern string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	var out []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if matchGlob(pattern, filepath.ToSlash(rel)) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchGlob supports "**" (any number of path segments) in addition to the
// single-segment wildcards filepath.Match already understands.
func matchGlob(pattern, name string) bool {
	if pattern == "**" || pattern == "**/*" {
		return true
	}
	pSegs := splitSegments(pattern)
	nSegs := splitSegments(name)
	return matchSegments(pSegs, nSegs)
}

func splitSegments(p string) []string {
	var segs []string
	for _, s := range filepathSplit(p) {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func filepathSplit(p string) []string {
	return splitOn(p, '/')
}

func splitOn(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func matchSegments(pattern, name []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], name) {
			return true
		}
		if len(name) == 0 {
			return false
		}
		return matchSegments(pattern, name[1:])
	}
	if len(name) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], name[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], name[1:])
}

func compileExcludes(base string, patterns []string) (func(string) bool, error) {
	return func(p string) bool {
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if matchGlob(filepath.ToSlash(pattern), rel) {
				return true
			}
		}
		return false
	}, nil
}
