// Package buildctx defines Context, the per-walk memory threaded explicitly
// through the analyzer, orchestrator, and pseudo-builder as a function
// argument rather than ambient global state.
package buildctx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context is owned by exactly one build walk. It is not safe to share
// across concurrent walks, matching the rule that a BuildContext is owned by
// a single walk".
type Context struct {
	// WalkID correlates every log line emitted during one walk, so
	// multi-project output from a single invocation (or a single
	// watch-triggered re-walk) can be grepped together.
	WalkID uuid.UUID

	mu                sync.Mutex
	unchangedOutputs  map[string]time.Time // absolute output path -> prior mtime
	projectsNeedBuild map[string]bool      // canonical project path -> was not UpToDate this walk
}

// New returns a fresh, empty build context for one walk.
func New() *Context {
	return &Context{
		WalkID:            uuid.New(),
		unchangedOutputs:  make(map[string]time.Time),
		projectsNeedBuild: make(map[string]bool),
	}
}

// RecordUnchanged records that outputPath was written or touched but
// determined to be byte-identical to its prior on-disk content; priorMtime
// is the mtime *before* the touch, so the analyzer can treat the file as
// still being at that earlier timestamp when deciding downstream staleness.
func (c *Context) RecordUnchanged(outputPath string, priorMtime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unchangedOutputs[outputPath] = priorMtime
}

// UnchangedPriorMtime returns the recorded prior mtime for outputPath and
// whether one was recorded during this walk.
func (c *Context) UnchangedPriorMtime(outputPath string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.unchangedOutputs[outputPath]
	return t, ok
}

// MarkNeedsBuild records that project was not classified UpToDate this
// walk. A dry run consults this to classify downstream projects as
// OlderThanDependency even though no compile actually ran.
func (c *Context) MarkNeedsBuild(project string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectsNeedBuild[project] = true
}

// NeedsBuild reports whether project was marked by MarkNeedsBuild this walk.
func (c *Context) NeedsBuild(project string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectsNeedBuild[project]
}
