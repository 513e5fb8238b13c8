package viz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pbuild/internal/pathid"
	"github.com/vk/pbuild/internal/refgraph"
)

func TestWriteDOT_LinearChain(t *testing.T) {
	a := pathid.MustCanonicalize("/p/a/tsconfig.json")
	b := pathid.MustCanonicalize("/p/b/tsconfig.json")

	refs := refgraph.New()
	refs.AddReference(a, b) // a references b

	var buf strings.Builder
	require.NoError(t, WriteDOT(&buf, refs, []pathid.ID{a}))

	out := buf.String()
	assert.Contains(t, out, "digraph pbuild {")
	assert.Contains(t, out, `"`+a.String()+`" -> "`+b.String()+`";`)
}

func TestRenderTree_LinearChain(t *testing.T) {
	a := pathid.MustCanonicalize("/p/a/tsconfig.json")
	b := pathid.MustCanonicalize("/p/b/tsconfig.json")

	refs := refgraph.New()
	refs.AddReference(a, b)

	out := RenderTree(refs, []pathid.ID{a})
	assert.Contains(t, out, a.String())
	assert.Contains(t, out, b.String())
}

func TestRenderTree_CycleMarked(t *testing.T) {
	a := pathid.MustCanonicalize("/p/a/tsconfig.json")
	b := pathid.MustCanonicalize("/p/b/tsconfig.json")

	refs := refgraph.New()
	refs.AddReference(a, b)
	refs.AddReference(b, a) // cycle

	out := RenderTree(refs, []pathid.ID{a})
	assert.Contains(t, out, "(cycle)")
}
