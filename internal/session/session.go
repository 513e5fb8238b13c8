// Package session owns the collaborators that would otherwise be process
// singletons — the compiler client and the watcher — and drives the watch
// loop that repeatedly re-invokes the orchestrator as filesystem events
// arrive.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/pbuild/internal/analyzer"
	"github.com/vk/pbuild/internal/buildgraph"
	"github.com/vk/pbuild/internal/compiler"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/ctxlog"
	"github.com/vk/pbuild/internal/orchestrator"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/pseudobuild"
	"github.com/vk/pbuild/internal/watch"
)

// Session bundles the collaborators one invocation of pbuild needs. A
// single-shot build only ever calls Build once; --watch keeps the Session
// alive for the process lifetime and calls Watch.
type Session struct {
	Loader   config.Loader
	Compiler compiler.Compiler
	Clock    analyzer.Clock
	FS       pseudobuild.FileSystem

	// WatchDebounce overrides watch.DefaultDebounce for coalescing bursts
	// of filesystem events into a single re-run. Zero means use the
	// default.
	WatchDebounce time.Duration

	watcher *watch.Watcher
}

// Build discovers the graph reachable from roots and runs one orchestrator
// walk over it.
func (s *Session) Build(ctx context.Context, roots []pathid.ID, opts orchestrator.Options) (*buildgraph.Result, *orchestrator.Report, error) {
	graph, err := buildgraph.Build(ctx, roots, s.Loader)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering build graph: %w", err)
	}
	report, err := orchestrator.Walk(ctx, graph, s.Compiler, s.Clock, s.FS, opts)
	return graph, report, err
}

// Watch builds roots once, then reacts to filesystem events for as long as
// ctx remains alive: a configuration change triggers a full graph rebuild
// and rewatch, and any other change triggers a targeted re-run of the
// orchestrator over the existing graph.
func (s *Session) Watch(ctx context.Context, roots []pathid.ID, opts orchestrator.Options) error {
	logger := ctxlog.FromContext(ctx)

	// A watch session reuses one cached loader across every rebuild so a
	// config event only reparses the project it touched, not the whole
	// graph.
	cachingLoader, err := analyzer.NewCachingLoader(s.Loader, watchConfigCacheSize)
	if err != nil {
		return fmt.Errorf("creating config cache: %w", err)
	}

	build := func() (*buildgraph.Result, *orchestrator.Report, error) {
		g, err := buildgraph.Build(ctx, roots, cachingLoader)
		if err != nil {
			return nil, nil, fmt.Errorf("discovering build graph: %w", err)
		}
		report, err := orchestrator.Walk(ctx, g, s.Compiler, s.Clock, s.FS, opts)
		return g, report, err
	}

	graph, _, err := build()
	if err != nil {
		return err
	}

	w, err := watch.New()
	if err != nil {
		return err
	}
	if s.WatchDebounce > 0 {
		w.Debounce = s.WatchDebounce
	}
	s.watcher = w
	defer func() { w.Close() }()

	if err := w.Install(ctx, graph); err != nil {
		return fmt.Errorf("installing watches: %w", err)
	}

	events := w.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}

			switch ev.Kind {
			case watch.ConfigChanged:
				logger.Info("Configuration changed, rebuilding graph.", "paths", ev.Paths)
				for _, p := range ev.Paths {
					if id, err := pathid.Canonicalize(p); err == nil {
						cachingLoader.Invalidate(id)
					}
				}
				graph, _, err = build()
				if err != nil {
					return err
				}
				// Closing the watcher ends its Run loop, so the new graph gets
				// a fresh Watcher and event channel.
				w.Close()
				if w, err = watch.New(); err != nil {
					return err
				}
				if s.WatchDebounce > 0 {
					w.Debounce = s.WatchDebounce
				}
				s.watcher = w
				if err := w.Install(ctx, graph); err != nil {
					return fmt.Errorf("reinstalling watches: %w", err)
				}
				events = w.Run(ctx)

			case watch.SourceChanged:
				logger.Debug("Source changed, re-running build.", "paths", ev.Paths)
				if _, err := orchestrator.Walk(ctx, graph, s.Compiler, s.Clock, s.FS, opts); err != nil {
					return err
				}
			}
		}
	}
}

// watchConfigCacheSize bounds the per-session parsed-config cache. A single
// watch session rarely spans more than a few hundred referenced projects.
const watchConfigCacheSize = 512
