package pathid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_RelativeVsAbsolute(t *testing.T) {
	wd, err := filepath.Abs(".")
	require.NoError(t, err)

	rel, err := Canonicalize("tsconfig.json")
	require.NoError(t, err)

	abs, err := Canonicalize(filepath.Join(wd, "tsconfig.json"))
	require.NoError(t, err)

	assert.True(t, rel.Equal(abs), "relative and absolute resolutions of the same file must canonicalize equal")
}

func TestCanonicalize_DriveLetterCase(t *testing.T) {
	lower := ID{path: normalize("c:/a/tsconfig.json")}
	upper := ID{path: normalize("C:/a/tsconfig.json")}
	assert.True(t, lower.Equal(upper), "drive letter case must not affect canonical equality")
}

func TestCanonicalize_SeparatorNormalization(t *testing.T) {
	forward := ID{path: normalize("C:/a/b/tsconfig.json")}
	back := ID{path: normalize(`C:\a\b\tsconfig.json`)}
	assert.Equal(t, forward.String(), back.String())
}

func TestJoin_RelativeToBaseDir(t *testing.T) {
	base := MustCanonicalize("/projects/app/tsconfig.json")
	joined, err := Join(base, "../lib/tsconfig.json")
	require.NoError(t, err)
	assert.Equal(t, MustCanonicalize("/projects/lib/tsconfig.json").String(), joined.String())
}

func TestJoin_AbsoluteRelIgnoresBase(t *testing.T) {
	base := MustCanonicalize("/projects/app/tsconfig.json")
	joined, err := Join(base, "/elsewhere/tsconfig.json")
	require.NoError(t, err)
	assert.Equal(t, MustCanonicalize("/elsewhere/tsconfig.json").String(), joined.String())
}

func TestID_IsZero(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.False(t, MustCanonicalize("/a/tsconfig.json").IsZero())
}
