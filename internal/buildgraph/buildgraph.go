// Package buildgraph discovers the full set of transitively referenced
// projects from a set of roots and computes a layered, topologically valid
// build order.
package buildgraph

import (
	"context"
	"fmt"

	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/ctxlog"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/refgraph"
)

// Queue is an ordered sequence of layers, each an unordered set of project
// identifiers. Walking from the last layer to the first yields a valid
// topological build order: every reference of a project in layer i appears
// in some layer j > i.
type Queue struct {
	Layers [][]pathid.ID
}

// Result is the output of Build: the layered queue plus the reference map
// discovered while building it.
type Result struct {
	Queue      *Queue
	References *refgraph.Map
	Configs    map[string]*config.ProjectConfig // canonical path -> parsed config, cached for reuse by the caller
}

// Build discovers every project transitively referenced by roots and
// computes a layered build order. A root or reference that fails to parse
// fails the whole build with an error naming the offending file. A cycle
// is detected explicitly (via an in-progress DFS stack) rather than left to
// degenerate through layer compaction.
func Build(ctx context.Context, roots []pathid.ID, loader config.Loader) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	b := &builder{
		ctx:      ctx,
		loader:   loader,
		refs:     refgraph.New(),
		configs:  make(map[string]*config.ProjectConfig),
		layers:   make(map[int]map[string]pathid.ID),
		visiting: make(map[string]bool),
	}

	for _, root := range roots {
		if err := b.visit(root, 0); err != nil {
			return nil, err
		}
	}

	queue := b.compact()
	logger.Debug("buildgraph.Build finished.", "projects", len(b.configs), "layers", len(queue.Layers))

	return &Result{Queue: queue, References: b.refs, Configs: b.configs}, nil
}

type builder struct {
	ctx      context.Context
	loader   config.Loader
	refs     *refgraph.Map
	configs  map[string]*config.ProjectConfig
	layers   map[int]map[string]pathid.ID
	maxDepth int
	visiting map[string]bool // ids currently on the DFS stack, for cycle detection
}

// visit implements the depth-first traversal: a project is appended to its
// current-depth layer, then its references are recursed into at depth+1,
// and the depth cursor is retracted on return.
func (b *builder) visit(id pathid.ID, depth int) error {
	key := id.String()

	if b.visiting[key] {
		return fmt.Errorf("cycle detected involving project %s", key)
	}

	cfg, alreadyParsed := b.configs[key]
	if !alreadyParsed {
		var err error
		cfg, err = b.loader.Load(b.ctx, id)
		if err != nil {
			return fmt.Errorf("failed to parse project %s: %w", key, err)
		}
		b.configs[key] = cfg
	}

	b.appendToLayer(depth, id)
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	// Always recurse into references, even if id was already parsed on an
	// earlier path: a deeper rediscovery of id must cascade to its own
	// references so they, too, get re-registered at a layer deep enough to
	// still precede id after compact()'s rightward dedup. Only a project
	// currently on the DFS stack (a genuine cycle) short-circuits above;
	// re-visiting an already-explored diamond is extra work, not a bug.
	b.visiting[key] = true
	for _, ref := range cfg.References {
		b.refs.AddReference(id, ref.Target)
		if err := b.visit(ref.Target, depth+1); err != nil {
			return err
		}
	}
	delete(b.visiting, key)

	return nil
}

func (b *builder) appendToLayer(depth int, id pathid.ID) {
	if b.layers[depth] == nil {
		b.layers[depth] = make(map[string]pathid.ID)
	}
	b.layers[depth][id.String()] = id
}

// compact converts the depth-indexed layer sets into the final Queue,
// deduping "rightward": a project appearing in an earlier (shallower) layer
// is dropped from that layer if it also appears in any deeper layer, since
// the deepest occurrence is the one that respects every reference edge.
func (b *builder) compact() *Queue {
	deepestLayerOf := make(map[string]int)
	for depth := 0; depth <= b.maxDepth; depth++ {
		for key := range b.layers[depth] {
			deepestLayerOf[key] = depth // later (deeper) iterations overwrite, so this ends up as the max
		}
	}

	layers := make([][]pathid.ID, b.maxDepth+1)
	for depth := 0; depth <= b.maxDepth; depth++ {
		for key, id := range b.layers[depth] {
			if deepestLayerOf[key] == depth {
				layers[depth] = append(layers[depth], id)
			}
		}
	}

	// Layers stay in root-first order (Layers[0] == roots); callers that
	// build range over them in reverse, deepest layer first.
	return &Queue{Layers: layers}
}
