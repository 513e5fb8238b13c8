// Package compiler declares the interface pbuild expects from the external
// compiler service. The compiler itself — parsing source, type-checking,
// and producing emits — is explicitly out of scope; this
// package only defines the boundary the orchestrator calls across.
package compiler

import (
	"context"

	"github.com/vk/pbuild/internal/config"
)

// Emit is a single file the compiler wants written to disk.
type Emit struct {
	Path string
	Data []byte
	// IsDeclaration marks a ".d.ts" emit, which the orchestrator treats
	// specially: skip on declaration diagnostics, and
	// detect byte-identical rewrites for the pseudo-build memo).
	IsDeclaration bool
}

// Severity classifies a diagnostic's effect on emission
type Severity int

const (
	// Semantic diagnostics are reported but outputs are still written.
	Semantic Severity = iota
	// Syntactic diagnostics suppress emit entirely.
	Syntactic
	// DeclarationOnly diagnostics suppress only ".d.ts" writes.
	DeclarationOnly
)

// Diagnostic is a single compiler-reported problem.
type Diagnostic struct {
	File     string
	Message  string
	Severity Severity
}

// Result is the outcome of compiling one project.
type Result struct {
	Emits       []Emit
	Diagnostics []Diagnostic
}

// HasSyntacticErrors reports whether emission should be suppressed
// entirely.
func (r Result) HasSyntacticErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == Syntactic {
			return true
		}
	}
	return false
}

// HasDeclarationErrors reports whether ".d.ts" emission should be
// suppressed while non-declaration emission proceeds.
func (r Result) HasDeclarationErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == DeclarationOnly {
			return true
		}
	}
	return false
}

// Compiler is the external collaborator the orchestrator dispatches full
// compiles to.
type Compiler interface {
	// Compile type-checks and emits project's outputs. It does not write
	// anything to disk itself: the orchestrator owns all filesystem side
	// effects so it can apply the emit rules uniformly (directory
	// creation, declaration-unchanged detection).
	Compile(ctx context.Context, project *config.ProjectConfig) (Result, error)
}
