// Package analyzer implements the up-to-date analyzer:
// classifying a project into one of six UpToDateStatus outcomes relative to
// its own inputs, its upstream references' outputs, and the walk's
// BuildContext memory of byte-identical rebuilds.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/pbuild/internal/buildctx"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/ctxlog"
	"github.com/vk/pbuild/internal/outputs"
	"github.com/vk/pbuild/internal/pathid"
)

// Clock abstracts filesystem stat so tests can drive deterministic
// timestamps without real mtime races.
type Clock interface {
	// Stat returns the file's mtime and whether it exists. A non-nil error
	// other than "not exists" is a hard I/O failure.
	Stat(path string) (mtime time.Time, exists bool, err error)
}

// Reference bundles a referenced project's identity with its already-parsed
// configuration, so the analyzer can compute the referenced project's own
// expected outputs without re-resolving the whole graph.
type Reference struct {
	ID     pathid.ID
	Config *config.ProjectConfig
}

// Analyze classifies id/cfg's build status. references must correspond,
// in any order, to cfg.References' targets. bctx supplies the pseudo-build
// memory from earlier steps of the same walk.
// dryRun tells Analyze whether this walk is a --dry plan: when true, an
// upstream reference marked buildctx.NeedsBuild is trusted over its
// on-disk mtimes, since in a dry walk that reference's outputs were never
// actually refreshed and so cannot be compared for real. In a real walk,
// by the time a downstream project is analyzed its upstream references
// have already been fully built (layers are walked deepest-first), so
// their on-disk state is authoritative and this override must not fire.
func Analyze(ctx context.Context, id pathid.ID, cfg *config.ProjectConfig, references []Reference, clock Clock, bctx *buildctx.Context, dryRun bool) (Status, error) {
	logger := ctxlog.FromContext(ctx).With("project", id.String())

	if cfg.IsSolution() {
		return upToDate(time.Time{}), nil
	}

	newestInput, newestInputFile, err := gatherInputs(cfg, clock)
	if err != nil {
		if unb, ok := err.(unbuildableErr); ok {
			logger.Warn("project is unbuildable", "reason", unb.reason)
			return unbuildable(unb.reason), nil
		}
		return Status{}, err
	}

	expected, err := outputs.Resolve(cfg)
	if err != nil {
		return Status{}, fmt.Errorf("project %s: %w", id, err)
	}

	oldestOutput := time.Time{}
	oldestOutputSet := false
	for _, out := range expected {
		mtime, exists, err := clock.Stat(out)
		if err != nil {
			return Status{}, fmt.Errorf("stat output %s: %w", out, err)
		}
		if !exists {
			return missing(out), nil
		}
		if !oldestOutputSet || mtime.Before(oldestOutput) {
			oldestOutput = mtime
			oldestOutputSet = true
		}
		if newestInput.After(oldestOutput) {
			return outOfDate(newestInputFile, newestInput, out, oldestOutput), nil
		}
	}

	// Zero expected outputs (declaration-only project with Declaration
	// false and no inputs reaching resolvePerInput, or similar edge) is
	// vacuously up to date at this point.
	if !oldestOutputSet {
		return upToDate(newestInput), nil
	}

	upstreamFiles, err := upstreamOutputFiles(cfg, references)
	if err != nil {
		return Status{}, err
	}

	usedPseudoTimestamp := false
	newestPseudoInput := time.Time{}

	if dryRun {
		for _, ref := range references {
			if bctx.NeedsBuild(ref.ID.String()) {
				return olderThanDependency(ref.ID.String()), nil
			}
		}
	}

	for _, file := range upstreamFiles {
		if priorMtime, ok := bctx.UnchangedPriorMtime(file); ok && !oldestOutput.Before(priorMtime) {
			usedPseudoTimestamp = true
			mtime, exists, err := clock.Stat(file)
			if err != nil {
				return Status{}, fmt.Errorf("stat upstream output %s: %w", file, err)
			}
			if exists && mtime.After(newestPseudoInput) {
				newestPseudoInput = mtime
			}
			continue
		}

		mtime, exists, err := clock.Stat(file)
		if err != nil {
			return Status{}, fmt.Errorf("stat upstream output %s: %w", file, err)
		}
		if !exists {
			continue // an upstream project with no outputs yet (e.g. a solution) contributes nothing
		}
		if mtime.After(newestInput) {
			newestInput = mtime
			newestInputFile = file
		}
		if newestInput.After(oldestOutput) {
			return outOfDate(newestInputFile, newestInput, "", oldestOutput), nil
		}
	}

	if usedPseudoTimestamp {
		result := newestInput
		if newestPseudoInput.After(result) {
			result = newestPseudoInput
		}
		return pseudoUpToDate(result), nil
	}
	return upToDate(newestInput), nil
}

type unbuildableErr struct{ reason string }

func (e unbuildableErr) Error() string { return e.reason }

func gatherInputs(cfg *config.ProjectConfig, clock Clock) (time.Time, string, error) {
	var newest time.Time
	var newestFile string
	for _, input := range cfg.InputFiles {
		mtime, exists, err := clock.Stat(input)
		if err != nil {
			return time.Time{}, "", err
		}
		if !exists {
			return time.Time{}, "", unbuildableErr{reason: "input file does not exist: " + input}
		}
		if mtime.After(newest) {
			newest = mtime
			newestFile = input
		}
	}
	return newest, newestFile, nil
}

// upstreamOutputFiles gathers the declaration outputs of every reference,
// plus (only when this project concatenates via outFile) their compiled
// JS outputs too.
func upstreamOutputFiles(cfg *config.ProjectConfig, references []Reference) ([]string, error) {
	var files []string
	for _, ref := range references {
		refOutputs, err := outputs.Resolve(ref.Config)
		if err != nil {
			return nil, fmt.Errorf("resolving outputs of reference %s: %w", ref.ID, err)
		}
		files = append(files, outputs.DeclarationsOf(ref.Config, refOutputs)...)
		if cfg.UsesOutFile() {
			files = append(files, outputs.JSOutputsOf(refOutputs)...)
		}
	}
	return files, nil
}
