// Package outputs implements the output-path resolver:
// given a project's configuration, enumerate the artifact paths it emits.
package outputs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/pbuild/internal/config"
)

// DeclarationExt is the extension of a typed-interface output.
const DeclarationExt = ".d.ts"

// jsExt is the extension a compiled, non-declaration output carries.
const jsExt = ".js"

// declSourceExt marks an input as already being a declaration file, which
// never itself produces an output (it only feeds type information).
const declSourceExt = ".d.ts"

// Resolve enumerates the expected output paths for cfg. Order is
// significant only in that OutFile-mode always yields the bundle before its
// optional declaration sibling.
func Resolve(cfg *config.ProjectConfig) ([]string, error) {
	if cfg.IsSolution() {
		return nil, nil
	}

	if cfg.UsesOutFile() {
		return resolveOutFile(cfg), nil
	}
	return resolvePerInput(cfg)
}

func resolveOutFile(cfg *config.ProjectConfig) []string {
	out := []string{cfg.OutFile}
	if cfg.Declaration {
		out = append(out, changeExtension(cfg.OutFile, DeclarationExt))
	}
	return out
}

func resolvePerInput(cfg *config.ProjectConfig) ([]string, error) {
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("project has no outFile and no outDir configured")
	}

	var out []string
	for _, input := range cfg.InputFiles {
		if strings.HasSuffix(input, declSourceExt) {
			continue
		}

		rel, err := rebase(input, cfg.RootDir)
		if err != nil {
			return nil, err
		}

		jsPath := filepath.Join(cfg.OutDir, changeExtension(rel, jsExt))
		out = append(out, jsPath)

		if cfg.Declaration {
			declPath := filepath.Join(cfg.OutDir, changeExtension(rel, DeclarationExt))
			out = append(out, declPath)
		}
	}
	return out, nil
}

// rebase computes inputFile relative to rootDir; if rootDir is unset, only
// the input's base name is used, so the output lands directly under OutDir
// and the input's directory structure is not preserved.
func rebase(inputFile, rootDir string) (string, error) {
	if rootDir == "" {
		return filepath.Base(inputFile), nil
	}
	rel, err := filepath.Rel(rootDir, inputFile)
	if err != nil {
		return "", fmt.Errorf("input %s is not under rootDir %s: %w", inputFile, rootDir, err)
	}
	return rel, nil
}

// changeExtension replaces the final extension of p with ext (which should
// include the leading dot, or be ".d.ts").
func changeExtension(p, ext string) string {
	trimmed := strings.TrimSuffix(p, filepath.Ext(p))
	return trimmed + ext
}

// DeclarationsOf returns every ".d.ts" path in allOutputs, or nil when cfg
// does not request declarations (used by the analyzer and pseudo-builder to
// look up a project's ".d.ts" outputs specifically).
func DeclarationsOf(cfg *config.ProjectConfig, allOutputs []string) []string {
	if !cfg.Declaration {
		return nil
	}
	var decls []string
	for _, o := range allOutputs {
		if strings.HasSuffix(o, DeclarationExt) {
			decls = append(decls, o)
		}
	}
	return decls
}

// JSOutputsOf returns the non-declaration compiled outputs from allOutputs
// (used when concatenating outFile bundles, which prepend upstream .js
// outputs rather than declarations).
func JSOutputsOf(allOutputs []string) []string {
	var js []string
	for _, o := range allOutputs {
		if !strings.HasSuffix(o, DeclarationExt) {
			js = append(js, o)
		}
	}
	return js
}
