package refgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/pbuild/internal/pathid"
)

func TestAddReference_BothDirections(t *testing.T) {
	m := New()
	child := pathid.MustCanonicalize("/proj/b/tsconfig.json")
	parent := pathid.MustCanonicalize("/proj/a/tsconfig.json")

	m.AddReference(child, parent)

	parents := m.ParentsOf(child)
	require1 := len(parents) == 1 && parents[0].Equal(parent)
	assert.True(t, require1, "parent ∈ parentsOf(child)")

	children := m.ChildrenOf(parent)
	require2 := len(children) == 1 && children[0].Equal(child)
	assert.True(t, require2, "child ∈ childrenOf(parent)")
}

func TestAddReference_Idempotent(t *testing.T) {
	m := New()
	child := pathid.MustCanonicalize("/proj/b/tsconfig.json")
	parent := pathid.MustCanonicalize("/proj/a/tsconfig.json")

	m.AddReference(child, parent)
	m.AddReference(child, parent)

	assert.Len(t, m.ParentsOf(child), 1)
	assert.Len(t, m.ChildrenOf(parent), 1)
}

func TestAddReference_Dedup_MultipleParents(t *testing.T) {
	m := New()
	child := pathid.MustCanonicalize("/proj/c/tsconfig.json")
	a := pathid.MustCanonicalize("/proj/a/tsconfig.json")
	b := pathid.MustCanonicalize("/proj/b/tsconfig.json")

	m.AddReference(child, a)
	m.AddReference(child, b)

	assert.Len(t, m.ParentsOf(child), 2)
}

func TestParentsOf_UnknownProject(t *testing.T) {
	m := New()
	unknown := pathid.MustCanonicalize("/nope/tsconfig.json")
	assert.Empty(t, m.ParentsOf(unknown))
}
