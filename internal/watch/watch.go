// Package watch implements the filesystem watcher (C8): it installs
// fsnotify watches over every project's configuration file, declared
// wildcard directories, and explicit input files, then coalesces bursts of
// filesystem events into debounced rebuild signals.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/pbuild/internal/buildgraph"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/ctxlog"
)

// Kind discriminates the two watch reactions: a configuration file
// changing (which invalidates the whole graph) versus a source file
// changing (which only needs a targeted re-run).
type Kind int

const (
	// ConfigChanged means some project's configuration file itself
	// changed; the whole graph must be rediscovered and rebuilt.
	ConfigChanged Kind = iota
	// SourceChanged means one or more source/output-adjacent paths
	// changed; a targeted re-run of the existing graph suffices.
	SourceChanged
)

// Event is a single, already-debounced rebuild signal.
type Event struct {
	Kind  Kind
	Paths []string // the coalesced set of paths that changed, for logging
}

// DefaultDebounce is used when Watcher is constructed with a zero Debounce.
const DefaultDebounce = 100 * time.Millisecond

// Watcher observes a build graph's on-disk footprint and emits coalesced
// Events for the caller to react to. The zero value is not usable; build
// one with New.
type Watcher struct {
	fsw      *fsnotify.Watcher
	Debounce time.Duration

	configPaths map[string]bool
	watchedDirs map[string]bool
}

// New creates a Watcher with no installed watches yet; call Install to
// point it at a build graph.
func New() (*Watcher, error) {
	return &Watcher{Debounce: DefaultDebounce}, nil
}

// Close releases the underlying OS watch handles, if any are installed.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

// Install replaces any existing watches with a fresh set derived from
// graph: every project's configuration file, its wildcard directories
// (recursively, if flagged), and any explicit input file not already
// covered by a watched directory. Per spec, a full graph rebuild closes
// every active watch before reinstalling, so Install always starts from a
// brand new underlying watcher rather than reusing the old one.
func (w *Watcher) Install(ctx context.Context, graph *buildgraph.Result) error {
	logger := ctxlog.FromContext(ctx)

	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			logger.Warn("Failed to close previous watcher.", "error", err)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	w.fsw = fsw
	w.configPaths = make(map[string]bool)
	w.watchedDirs = make(map[string]bool)

	for _, layer := range graph.Queue.Layers {
		for _, id := range layer {
			cfg := graph.Configs[id.String()]

			if err := w.fsw.Add(id.String()); err != nil {
				return fmt.Errorf("watching config %s: %w", id.String(), err)
			}
			w.configPaths[id.String()] = true

			for dir, mode := range cfg.WildcardDirectories {
				if mode == config.WatchRecursive {
					if err := w.addRecursive(dir); err != nil {
						return fmt.Errorf("watching directory %s: %w", dir, err)
					}
				} else if err := w.addDir(dir); err != nil {
					return fmt.Errorf("watching directory %s: %w", dir, err)
				}
			}

			for _, input := range cfg.InputFiles {
				if w.coveredByWatchedDir(input) {
					continue
				}
				if err := w.fsw.Add(input); err != nil {
					return fmt.Errorf("watching input %s: %w", input, err)
				}
			}
		}
	}

	logger.Debug("Installed watches.", "config_files", len(w.configPaths), "directories", len(w.watchedDirs))
	return nil
}

func (w *Watcher) addDir(dir string) error {
	if w.watchedDirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watchedDirs[dir] = true
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.addDir(path)
	})
}

func (w *Watcher) coveredByWatchedDir(path string) bool {
	return w.watchedDirs[filepath.Dir(path)]
}

// Run starts translating raw filesystem events into debounced Events on the
// returned channel. The channel is single-slot: a burst of raw events
// coalesces into at most one pending Event, so a slow consumer never falls
// behind by more than one rebuild. It stops, closing the channel, when ctx
// is canceled or the underlying watcher is closed.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	out := make(chan Event, 1)
	go w.loop(ctx, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, out chan<- Event) {
	defer close(out)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var pending map[string]bool
	var configChanged bool
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	timerRunning := false

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		kind := SourceChanged
		if configChanged {
			kind = ConfigChanged
		}
		// Non-blocking send into the single-slot channel: if the consumer
		// hasn't drained the previous Event yet, leave pending in place so
		// this batch merges into the next flush instead of piling up an
		// unbounded backlog.
		select {
		case out <- Event{Kind: kind, Paths: paths}:
			pending = nil
			configChanged = false
		case <-ctx.Done():
		default:
			// Consumer hasn't drained the slot; retry on the next timer
			// tick instead of dropping the batch.
			if !timerRunning {
				timer.Reset(debounce)
				timerRunning = true
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = make(map[string]bool)
			}
			pending[ev.Name] = true
			if w.configPaths[ev.Name] {
				configChanged = true
			}
			if timerRunning && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			timerRunning = true

		case <-timer.C:
			timerRunning = false
			flush()

		case _, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return
			}
			// Individual watch errors are non-fatal; the caller learns
			// about them via its own logging of subsequent event gaps.
		}
	}
}
