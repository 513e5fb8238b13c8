// Package passthroughcompiler provides a minimal, in-process
// compiler.Compiler good enough to run pbuild end to end without a real
// type-checking backend wired up. It never parses or type-checks source: it
// copies each input's bytes to its resolved output path and, when
// declarations are requested, emits a trivial one-line comment stub. Production
// use is expected to supply a real compiler.Compiler talking to whatever
// build service actually type-checks the source language; this
// implementation exists so the orchestrator, pseudo-builder, and watcher
// have something to drive without one.
package passthroughcompiler

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/pbuild/internal/compiler"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/outputs"
)

// Compiler is a stateless compiler.Compiler.
type Compiler struct{}

// New returns a ready-to-use Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile reads project's inputs from disk and produces one emit per
// resolved output path. A missing input file is reported as a syntactic
// diagnostic, suppressing all emits for the project, matching how a real
// compiler would fail the whole compilation unit on an unreadable source
// file.
func (c *Compiler) Compile(ctx context.Context, project *config.ProjectConfig) (compiler.Result, error) {
	if project.IsSolution() {
		return compiler.Result{}, nil
	}

	resolved, err := outputs.Resolve(project)
	if err != nil {
		return compiler.Result{}, fmt.Errorf("resolving outputs: %w", err)
	}
	declSet := make(map[string]bool)
	for _, d := range outputs.DeclarationsOf(project, resolved) {
		declSet[d] = true
	}

	if project.UsesOutFile() {
		return c.compileBundle(project, resolved, declSet)
	}
	return c.compilePerInput(project, resolved, declSet)
}

func (c *Compiler) compilePerInput(project *config.ProjectConfig, resolved []string, declSet map[string]bool) (compiler.Result, error) {
	var result compiler.Result

	// Declaration-only inputs (.d.ts sources) produce no output of their
	// own, so nonDecl can be shorter than project.InputFiles; idx tracks
	// the next unclaimed resolved output as InputFiles is walked in order.
	nonDecl := outputs.JSOutputsOf(resolved)
	idx := 0
	for _, input := range project.InputFiles {
		if isDeclarationSource(input) {
			continue
		}
		if idx >= len(nonDecl) {
			continue
		}
		outPath := nonDecl[idx]
		idx++
		data, err := os.ReadFile(input)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, compiler.Diagnostic{
				File:     input,
				Message:  err.Error(),
				Severity: compiler.Syntactic,
			})
			continue
		}
		result.Emits = append(result.Emits, compiler.Emit{Path: outPath, Data: data})
		if project.Declaration {
			for _, d := range resolved {
				if declSet[d] && declMatchesInput(d, outPath) {
					result.Emits = append(result.Emits, compiler.Emit{
						Path:          d,
						Data:          declarationStub(input),
						IsDeclaration: true,
					})
				}
			}
		}
	}
	return result, nil
}

func (c *Compiler) compileBundle(project *config.ProjectConfig, resolved []string, declSet map[string]bool) (compiler.Result, error) {
	var result compiler.Result
	var bundle []byte
	for _, input := range project.InputFiles {
		data, err := os.ReadFile(input)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, compiler.Diagnostic{
				File:     input,
				Message:  err.Error(),
				Severity: compiler.Syntactic,
			})
			return result, nil
		}
		bundle = append(bundle, data...)
	}
	result.Emits = append(result.Emits, compiler.Emit{Path: project.OutFile, Data: bundle})
	if project.Declaration {
		for _, d := range resolved {
			if declSet[d] {
				result.Emits = append(result.Emits, compiler.Emit{
					Path:          d,
					Data:          declarationStub(project.OutFile),
					IsDeclaration: true,
				})
			}
		}
	}
	return result, nil
}

// declMatchesInput reports whether declaration path d was resolved from the
// same input as compiled output outPath, by comparing their shared
// extension-stripped stem. outputs.Resolve emits both from the same rebased
// relative path, so their directory and basename always agree.
func declMatchesInput(d, outPath string) bool {
	return stem(d) == stem(outPath)
}

func isDeclarationSource(input string) bool {
	return len(input) > len(outputs.DeclarationExt) && input[len(input)-len(outputs.DeclarationExt):] == outputs.DeclarationExt
}

func stem(p string) string {
	if len(p) > len(outputs.DeclarationExt) && p[len(p)-len(outputs.DeclarationExt):] == outputs.DeclarationExt {
		return p[:len(p)-len(outputs.DeclarationExt)]
	}
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '.' {
			return p[:i]
		}
	}
	return p
}

func declarationStub(source string) []byte {
	return []byte(fmt.Sprintf("// generated declaration for %s\n", source))
}
