// Package viz renders a project's reference graph for human inspection: a
// Graphviz DOT document for external renderers, or a plain-text tree (via
// gotree) when nothing can render an image.
package viz

import (
	"fmt"
	"io"
	"sort"

	"github.com/disiqueira/gotree/v3"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/refgraph"
)

// WriteDOT writes a Graphviz DOT document describing every edge reachable
// from roots through refs. An edge A -> B means "A references B" (A depends
// on B having already been built).
func WriteDOT(w io.Writer, refs *refgraph.Map, roots []pathid.ID) error {
	if _, err := fmt.Fprintln(w, "digraph pbuild {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  rankdir=LR;"); err != nil {
		return err
	}

	visited := make(map[string]bool)
	var walk func(id pathid.ID) error
	walk = func(id pathid.ID) error {
		key := id.String()
		if visited[key] {
			return nil
		}
		visited[key] = true

		deps := refs.ParentsOf(id)
		sortByString(deps)
		for _, dep := range deps {
			if _, err := fmt.Fprintf(w, "  %q -> %q;\n", key, dep.String()); err != nil {
				return err
			}
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	sortedRoots := append([]pathid.ID(nil), roots...)
	sortByString(sortedRoots)
	for _, root := range sortedRoots {
		if err := walk(root); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

// RenderTree renders the reference graph reachable from roots as an
// indented text tree, for terminals without a DOT renderer available.
func RenderTree(refs *refgraph.Map, roots []pathid.ID) string {
	root := gotree.New("pbuild")

	visiting := make(map[string]bool)
	var addChildren func(node gotree.Tree, id pathid.ID)
	addChildren = func(node gotree.Tree, id pathid.ID) {
		key := id.String()
		if visiting[key] {
			node.Add(key + " (cycle)")
			return
		}
		visiting[key] = true
		defer delete(visiting, key)

		deps := refs.ParentsOf(id)
		sortByString(deps)
		for _, dep := range deps {
			addChildren(node.Add(dep.String()), dep)
		}
	}

	sortedRoots := append([]pathid.ID(nil), roots...)
	sortByString(sortedRoots)
	for _, r := range sortedRoots {
		addChildren(root.Add(r.String()), r)
	}

	return root.Print()
}

func sortByString(ids []pathid.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
