package cli

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	opts, err := Parse("pbuild", nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, opts.Roots)
	assert.False(t, opts.Dry)
	assert.False(t, opts.Force)
	assert.False(t, opts.Watch)
}

func TestParse_RepeatableProjectFlag(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-p", "a/tsconfig.json", "-p", "b/tsconfig.json"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/tsconfig.json", "b/tsconfig.json"}, opts.Roots)
}

func TestParse_PositionalAndFlagProjectsCombine(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-p", "a/tsconfig.json", "b/tsconfig.json"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/tsconfig.json", "b/tsconfig.json"}, opts.Roots)
}

func TestParse_VerboseAndQuiet_Rejected(t *testing.T) {
	_, err := Parse("pbuild", []string{"-verbose", "-quiet"}, io.Discard)
	assert.Error(t, err)
}

func TestParse_VizDeep(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-viz=deep"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.Viz)
	assert.True(t, opts.VizDeep)
}

func TestParse_VizText(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-viz=tree"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.Viz)
	assert.False(t, opts.VizDeep)
}

func TestParse_VizAndWatch_Rejected(t *testing.T) {
	_, err := Parse("pbuild", []string{"-viz=deep", "-watch"}, io.Discard)
	assert.Error(t, err)
}

func TestParse_VizBare(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-viz"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.Viz)
	assert.False(t, opts.VizDeep)
	assert.Empty(t, opts.Roots)
}

func TestParse_VizBare_DoesNotConsumeFollowingProject(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-viz", "myproject"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.Viz)
	assert.False(t, opts.VizDeep)
	assert.Equal(t, []string{"myproject"}, opts.Roots)
}

func TestParse_WatchDebounce(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-watch-debounce=500ms"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, opts.WatchDebounce)
}

func TestParse_LogFormatDefaultsToText(t *testing.T) {
	opts, err := Parse("pbuild", nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "text", opts.LogFormat)
}

func TestParse_LogFormatJSON(t *testing.T) {
	opts, err := Parse("pbuild", []string{"-log-format=json"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "json", opts.LogFormat)
}

func TestParse_LogFormatInvalid_Rejected(t *testing.T) {
	_, err := Parse("pbuild", []string{"-log-format=xml"}, io.Discard)
	assert.Error(t, err)
}

func TestExitError_Error(t *testing.T) {
	err := NewExitError(2, "bad input: %s", "oops")
	assert.Equal(t, "bad input: oops", err.Error())
	assert.Equal(t, 2, err.Code)
}
