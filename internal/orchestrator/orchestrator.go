// Package orchestrator drives one build walk: for every project in a
// buildgraph.Queue, deepest layer first, it runs the up-to-date analyzer,
// tries the pseudo-build shortcut when eligible, and otherwise dispatches a
// full compile — applying the compiler's emit rules uniformly.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/vk/pbuild/internal/analyzer"
	"github.com/vk/pbuild/internal/buildctx"
	"github.com/vk/pbuild/internal/buildgraph"
	"github.com/vk/pbuild/internal/compiler"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/ctxlog"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/pseudobuild"
)

// Options controls one build walk.
type Options struct {
	// Dry reports what would happen without touching any output on disk.
	Dry bool
	// Force compiles every reachable project even when UpToDate.
	Force bool
	// Now returns the current time; nil defaults to time.Now. Tests supply
	// a fixed clock for deterministic mtime assertions.
	Now func() time.Time
}

// ProjectOutcome records what happened to a single project during a walk.
type ProjectOutcome struct {
	Project     pathid.ID
	Status      analyzer.Status
	Built       bool // a full compile ran
	PseudoBuilt bool // a touch-forward or bundle reconstruction ran instead
	Diagnostics []compiler.Diagnostic
}

// Report summarizes an entire walk, in the order projects were visited
// (deepest layer first).
type Report struct {
	Outcomes []ProjectOutcome
}

// UnbuildableError aborts a walk: a project's input file does not exist on
// disk, so nothing downstream of it can be trusted either.
type UnbuildableError struct {
	Project pathid.ID
	Path    string
}

func (e *UnbuildableError) Error() string {
	return fmt.Sprintf("project %s: input file missing: %s", e.Project.String(), e.Path)
}

// Walk builds every project reachable in graph, deepest layer first, so a
// project is only ever visited after all of its references have already
// been analyzed (and, if needed, rebuilt) this same walk.
func Walk(ctx context.Context, graph *buildgraph.Result, comp compiler.Compiler, clock analyzer.Clock, fs pseudobuild.FileSystem, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	bctx := buildctx.New()
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger = logger.With("walk_id", bctx.WalkID.String())
	ctx = ctxlog.WithLogger(ctx, logger)
	report := &Report{}

	for i := len(graph.Queue.Layers) - 1; i >= 0; i-- {
		for _, id := range graph.Queue.Layers[i] {
			cfg := graph.Configs[id.String()]
			refs := resolveReferences(cfg, graph.Configs)

			status, err := analyzer.Analyze(ctx, id, cfg, refs, clock, bctx, opts.Dry)
			if err != nil {
				return report, fmt.Errorf("analyzing project %s: %w", id.String(), err)
			}

			if status.Kind == analyzer.Unbuildable {
				missingInput := ""
				for _, input := range cfg.InputFiles {
					if _, exists, statErr := clock.Stat(input); statErr == nil && !exists {
						missingInput = input
						break
					}
				}
				return report, &UnbuildableError{Project: id, Path: missingInput}
			}
			if status.Kind != analyzer.UpToDate {
				bctx.MarkNeedsBuild(id.String())
				logger.Info("project status", "project", id.String(), "status", status.Kind.String(), "reason", status.Reason)
			}

			outcome := ProjectOutcome{Project: id, Status: status}

			switch {
			case opts.Dry:
				// Report only; a dry walk never touches disk.

			case status.Kind == analyzer.UpToDate && !opts.Force:
				logger.Debug("Project is up to date, skipping.", "project", id.String())

			case status.Kind == analyzer.PseudoUpToDate:
				pseudoOK, err := pseudobuild.Try(ctx, id, cfg, referenceOutFiles(cfg, graph.Configs), now(), bctx, fs)
				if err != nil {
					return report, fmt.Errorf("pseudo-building project %s: %w", id.String(), err)
				}
				if pseudoOK {
					outcome.PseudoBuilt = true
					logger.Info("Pseudo-built project.", "project", id.String())
					break
				}
				if err := fullCompile(ctx, id, cfg, comp, fs, bctx, &outcome); err != nil {
					return report, err
				}

			default:
				if err := fullCompile(ctx, id, cfg, comp, fs, bctx, &outcome); err != nil {
					return report, err
				}
			}

			report.Outcomes = append(report.Outcomes, outcome)
		}
	}

	return report, nil
}

func fullCompile(ctx context.Context, id pathid.ID, cfg *config.ProjectConfig, comp compiler.Compiler, fs pseudobuild.FileSystem, bctx *buildctx.Context, outcome *ProjectOutcome) error {
	result, err := comp.Compile(ctx, cfg)
	if err != nil {
		return fmt.Errorf("compiling project %s: %w", id.String(), err)
	}
	outcome.Built = true
	outcome.Diagnostics = result.Diagnostics

	if result.HasSyntacticErrors() {
		return nil
	}
	suppressDeclarations := result.HasDeclarationErrors()

	for _, emit := range result.Emits {
		if emit.IsDeclaration && suppressDeclarations {
			continue
		}
		if err := writeEmit(fs, emit, bctx); err != nil {
			return fmt.Errorf("writing %s for project %s: %w", emit.Path, id.String(), err)
		}
	}
	return nil
}

// writeEmit writes a single compiler emit and, for declaration outputs
// only, records the file's prior mtime with the build context when its new
// bytes are identical to what was already on disk — the signal the
// analyzer's pseudo-cascade check reads back on a later downstream walk.
func writeEmit(fs pseudobuild.FileSystem, emit compiler.Emit, bctx *buildctx.Context) error {
	priorMtime, _, existed, err := fs.Stat(emit.Path)
	if err != nil {
		return err
	}
	var priorData []byte
	if existed {
		priorData, err = fs.ReadFile(emit.Path)
		if err != nil {
			return err
		}
	}

	if err := fs.WriteFile(emit.Path, emit.Data); err != nil {
		return err
	}

	if emit.IsDeclaration && existed && bytes.Equal(priorData, emit.Data) {
		bctx.RecordUnchanged(emit.Path, priorMtime)
	}
	return nil
}

func resolveReferences(cfg *config.ProjectConfig, configs map[string]*config.ProjectConfig) []analyzer.Reference {
	if len(cfg.References) == 0 {
		return nil
	}
	refs := make([]analyzer.Reference, 0, len(cfg.References))
	for _, r := range cfg.References {
		refs = append(refs, analyzer.Reference{ID: r.Target, Config: configs[r.Target.String()]})
	}
	return refs
}

func referenceOutFiles(cfg *config.ProjectConfig, configs map[string]*config.ProjectConfig) []pseudobuild.ReferenceOutFile {
	if len(cfg.References) == 0 {
		return nil
	}
	out := make([]pseudobuild.ReferenceOutFile, 0, len(cfg.References))
	for _, r := range cfg.References {
		var outFile string
		if refCfg := configs[r.Target.String()]; refCfg != nil && refCfg.UsesOutFile() {
			outFile = refCfg.OutFile
		}
		out = append(out, pseudobuild.ReferenceOutFile{Target: r.Target, OutFile: outFile})
	}
	return out
}
