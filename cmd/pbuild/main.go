// Command pbuild is an incremental, dependency-aware build orchestrator for
// projects declared with tsconfig.json-style project references.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/pbuild/internal/buildgraph"
	"github.com/vk/pbuild/internal/cli"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/config/jsonconfig"
	"github.com/vk/pbuild/internal/ctxlog"
	"github.com/vk/pbuild/internal/diskfs"
	"github.com/vk/pbuild/internal/orchestrator"
	"github.com/vk/pbuild/internal/passthroughcompiler"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/session"
	"github.com/vk/pbuild/internal/viz"
)

func main() {
	// Use a minimal logger until Options is parsed and the real one is
	// installed.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) (err error) {
	// Best-effort: a .env file is a convenience, never a requirement.
	_ = godotenv.Load()

	opts, err := cli.Parse("pbuild", args, outW)
	if err != nil {
		return cli.NewExitError(2, "%s", err.Error())
	}

	logger := newLogger(opts)
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	defer func() {
		if r := recover(); r != nil {
			err = cli.NewExitError(1, "pbuild panicked: %v", r)
		}
	}()

	roots, err := resolveRoots(opts.Roots)
	if err != nil {
		return cli.NewExitError(2, "%s", err.Error())
	}

	loader := jsonconfig.New()

	if opts.Viz {
		return runViz(ctx, outW, roots, loader, opts)
	}

	graph, err := buildgraph.Build(ctx, roots, loader)
	if err != nil {
		return cli.NewExitError(1, "discovering build graph: %s", err.Error())
	}

	if opts.ListOnly {
		printBuildOrder(outW, graph)
		return nil
	}

	sess := &session.Session{
		Loader:        loader,
		Compiler:      passthroughcompiler.New(),
		Clock:         diskfs.NewClock(),
		FS:            diskfs.NewFileSystem(),
		WatchDebounce: opts.WatchDebounce,
	}

	buildOpts := orchestrator.Options{Dry: opts.Dry, Force: opts.Force}

	if opts.Watch {
		return sess.Watch(ctx, roots, buildOpts)
	}

	report, err := orchestrator.Walk(ctx, graph, sess.Compiler, sess.Clock, sess.FS, buildOpts)
	if err != nil {
		return cli.NewExitError(1, "%s", err.Error())
	}
	printReport(outW, report)
	if reportHasErrors(report) {
		return cli.NewExitError(1, "build finished with diagnostics")
	}
	return nil
}

func newLogger(opts *cli.Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

// resolveRoots turns the command-line project arguments into canonical
// config-file identifiers: a directory is recursively scanned for every
// nested tsconfig.json, a wildcard-shaped argument that doesn't exist
// literally is expanded with filepath.Glob and each match resolved in turn,
// and anything else is taken as a literal config file. With no arguments at
// all, ./tsconfig.json is used if present, otherwise the current directory
// is scanned recursively.
func resolveRoots(rawRoots []string) ([]pathid.ID, error) {
	if len(rawRoots) == 0 {
		return resolveDefaultRoot()
	}

	var ids []pathid.ID
	for _, raw := range rawRoots {
		expanded, err := expandRoot(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, expanded...)
	}
	return ids, nil
}

func resolveDefaultRoot() ([]pathid.ID, error) {
	if info, err := os.Stat(config.DefaultConfigFilename); err == nil && !info.IsDir() {
		id, err := pathid.Canonicalize(config.DefaultConfigFilename)
		if err != nil {
			return nil, fmt.Errorf("resolving project %s: %w", config.DefaultConfigFilename, err)
		}
		return []pathid.ID{id}, nil
	}
	return findConfigFiles(".")
}

func expandRoot(raw string) ([]pathid.ID, error) {
	if info, statErr := os.Stat(raw); statErr == nil {
		if info.IsDir() {
			return findConfigFiles(raw)
		}
		id, err := pathid.Canonicalize(raw)
		if err != nil {
			return nil, fmt.Errorf("resolving project %s: %w", raw, err)
		}
		return []pathid.ID{id}, nil
	}

	if hasGlobMeta(raw) {
		matches, err := filepath.Glob(raw)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", raw, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("resolving project %s: wildcard matched no files", raw)
		}
		var ids []pathid.ID
		for _, match := range matches {
			expanded, err := expandRoot(match)
			if err != nil {
				return nil, err
			}
			ids = append(ids, expanded...)
		}
		return ids, nil
	}

	// Neither an existing path nor a wildcard: canonicalize as a literal
	// file reference and let config loading report the missing-file error.
	id, err := pathid.Canonicalize(raw)
	if err != nil {
		return nil, fmt.Errorf("resolving project %s: %w", raw, err)
	}
	return []pathid.ID{id}, nil
}

// findConfigFiles recursively scans dir for every tsconfig.json, turning
// each into a root.
func findConfigFiles(dir string) ([]pathid.ID, error) {
	var ids []pathid.ID
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != config.DefaultConfigFilename {
			return nil
		}
		id, err := pathid.Canonicalize(path)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no %s found under %s", config.DefaultConfigFilename, dir)
	}
	return ids, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func printBuildOrder(w io.Writer, graph *buildgraph.Result) {
	for i := len(graph.Queue.Layers) - 1; i >= 0; i-- {
		for _, id := range graph.Queue.Layers[i] {
			fmt.Fprintln(w, id.String())
		}
	}
}

func printReport(w io.Writer, report *orchestrator.Report) {
	for _, outcome := range report.Outcomes {
		switch {
		case outcome.Built:
			fmt.Fprintf(w, "built     %s\n", outcome.Project.String())
		case outcome.PseudoBuilt:
			fmt.Fprintf(w, "pseudo    %s\n", outcome.Project.String())
		default:
			fmt.Fprintf(w, "unchanged %s\n", outcome.Project.String())
		}
		for _, d := range outcome.Diagnostics {
			fmt.Fprintf(w, "  %s: %s\n", d.File, d.Message)
		}
	}
}

func reportHasErrors(report *orchestrator.Report) bool {
	for _, outcome := range report.Outcomes {
		if len(outcome.Diagnostics) > 0 {
			return true
		}
	}
	return false
}

func runViz(ctx context.Context, w io.Writer, roots []pathid.ID, loader config.Loader, opts *cli.Options) error {
	graph, err := buildgraph.Build(ctx, roots, loader)
	if err != nil {
		return cli.NewExitError(1, "discovering build graph: %s", err.Error())
	}
	if opts.VizDeep {
		return viz.WriteDOT(w, graph.References, roots)
	}
	fmt.Fprintln(w, viz.RenderTree(graph.References, roots))
	return nil
}
