// Package pseudobuild implements the pseudo-builder: a
// rebuild that advances output mtimes — and, for concatenated bundles,
// rewrites the concatenation — without invoking the compiler.
package pseudobuild

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

// ReferenceOutFile pairs a reference's declaration order position with the
// current on-disk path of its own outFile bundle (only meaningful when the
// reference's project itself uses outFile).
type ReferenceOutFile struct {
	Target  pathid.ID
	OutFile string // empty if the reference project does not use outFile
}

// Try attempts a pseudo-build of id. It returns ok=false (never an error)
// when the project's on-disk state doesn't support pseudo-building — the
// caller should fall back to a full compile in that case.
func Try(ctx context.Context, id pathid.ID, cfg *config.ProjectConfig, refs []ReferenceOutFile, now time.Time, bctx *buildctx.Context, fs FileSystem) (ok bool, err error) {
	logger := ctxlog.FromContext(ctx).With("project", id.String())

	if cfg.HasPrependReference() {
		return tryBundleReconstruction(id, cfg, refs, now, bctx, fs, logger)
	}
	return tryTouchForward(cfg, now, bctx, fs)
}

func tryTouchForward(cfg *config.ProjectConfig, now time.Time, bctx *buildctx.Context, fs FileSystem) (bool, error) {
	expected, err := outputs.Resolve(cfg)
	if err != nil {
		return false, fmt.Errorf("resolving outputs: %w", err)
	}
	for _, path := range expected {
		priorMtime, _, exists, err := fs.Stat(path)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", path, err)
		}
		if !exists {
			return false, nil // nothing to touch forward; let the orchestrator fall back to a full compile
		}
		if err := fs.SetMtime(path, now); err != nil {
			return false, fmt.Errorf("touch %s: %w", path, err)
		}
		bctx.RecordUnchanged(path, priorMtime)
	}
	return true, nil
}

func tryBundleReconstruction(id pathid.ID, cfg *config.ProjectConfig, refs []ReferenceOutFile, now time.Time, bctx *buildctx.Context, fs FileSystem, logger interface {
	Warn(msg string, args ...any)
}) (bool, error) {
	bundlePath := cfg.OutFile
	sidecarPath := SidecarPath(bundlePath)

	_, bundleSize, bundleExists, err := fs.Stat(bundlePath)
	if err != nil {
		return false, fmt.Errorf("stat bundle %s: %w", bundlePath, err)
	}
	_, _, sidecarExists, err := fs.Stat(sidecarPath)
	if err != nil {
		return false, fmt.Errorf("stat sidecar %s: %w", sidecarPath, err)
	}
	if !bundleExists || !sidecarExists {
		return false, nil
	}

	rawDescriptor, err := fs.ReadFile(sidecarPath)
	if err != nil {
		return false, fmt.Errorf("reading sidecar %s: %w", sidecarPath, err)
	}
	descriptor, err := decodeDescriptor(rawDescriptor)
	if err != nil {
		logger.Warn("bundle sidecar unreadable, falling back to full compile",
			"project", id.String(), "sidecar", sidecarPath, "error", err)
		return false, nil
	}
	if descriptor.TotalLength != bundleSize {
		logger.Warn("bundle sidecar length mismatch, falling back to full compile",
			"project", id.String(), "sidecar_total", descriptor.TotalLength, "actual_size", bundleSize)
		return false, nil
	}

	bundleBytes, err := fs.ReadFile(bundlePath)
	if err != nil {
		return false, fmt.Errorf("reading bundle %s: %w", bundlePath, err)
	}
	if descriptor.OriginalOffset < 0 || descriptor.OriginalOffset > int64(len(bundleBytes)) {
		logger.Warn("bundle sidecar offset out of range, falling back to full compile", "project", id.String())
		return false, nil
	}
	ownContribution := bundleBytes[descriptor.OriginalOffset:]

	var accumulator []byte
	for _, ref := range refs {
		if ref.OutFile == "" {
			continue
		}
		upstream, err := fs.ReadFile(ref.OutFile)
		if err != nil {
			return false, fmt.Errorf("reading upstream bundle %s: %w", ref.OutFile, err)
		}
		accumulator = append(accumulator, upstream...)
	}
	newOffset := int64(len(accumulator))
	accumulator = append(accumulator, ownContribution...)

	if err := fs.WriteFile(bundlePath, accumulator); err != nil {
		return false, fmt.Errorf("writing bundle %s: %w", bundlePath, err)
	}

	newDescriptor := Descriptor{OriginalOffset: newOffset, TotalLength: int64(len(accumulator))}
	encoded, err := encodeDescriptor(newDescriptor)
	if err != nil {
		return false, fmt.Errorf("encoding sidecar %s: %w", sidecarPath, err)
	}
	if err := fs.WriteFile(sidecarPath, encoded); err != nil {
		return false, fmt.Errorf("writing sidecar %s: %w", sidecarPath, err)
	}

	if cfg.Declaration {
		expected, err := outputs.Resolve(cfg)
		if err != nil {
			return false, fmt.Errorf("resolving declaration output: %w", err)
		}
		for _, dp := range outputs.DeclarationsOf(cfg, expected) {
			priorMtime, _, exists, err := fs.Stat(dp)
			if err != nil {
				return false, fmt.Errorf("stat declaration %s: %w", dp, err)
			}
			if !exists {
				continue
			}
			if err := fs.SetMtime(dp, now); err != nil {
				return false, fmt.Errorf("touch declaration %s: %w", dp, err)
			}
			bctx.RecordUnchanged(dp, priorMtime)
		}
	}

	return true, nil
}
