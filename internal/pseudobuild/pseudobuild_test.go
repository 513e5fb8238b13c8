package pseudobuild

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pbuild/internal/buildctx"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/pathid"
)

// fakeFS is an in-memory FileSystem for deterministic pseudo-build tests.
type fakeFS struct {
	data  map[string][]byte
	mtime map[string]time.Time
}

func newFakeFS() *fakeFS {
	return &fakeFS{data: make(map[string][]byte), mtime: make(map[string]time.Time)}
}

func (f *fakeFS) put(path string, data []byte, mtime time.Time) {
	f.data[path] = data
	f.mtime[path] = mtime
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	return f.data[path], nil
}

func (f *fakeFS) WriteFile(path string, data []byte) error {
	f.data[path] = data
	return nil
}

func (f *fakeFS) Stat(path string) (time.Time, int64, bool, error) {
	data, ok := f.data[path]
	if !ok {
		return time.Time{}, 0, false, nil
	}
	return f.mtime[path], int64(len(data)), true, nil
}

func (f *fakeFS) SetMtime(path string, t time.Time) error {
	f.mtime[path] = t
	return nil
}

func t0(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func selfID(t *testing.T) pathid.ID {
	t.Helper()
	return pathid.MustCanonicalize("/proj/self/tsconfig.json")
}

func TestTry_TouchForward_AdvancesMtimeAndRecordsPrior(t *testing.T) {
	fs := newFakeFS()
	fs.put("/dist/a.js", []byte("compiled"), t0(0))

	cfg := &config.ProjectConfig{InputFiles: []string{"/src/a.ts"}, OutDir: "/dist", RootDir: "/src"}
	bctx := buildctx.New()
	now := t0(100)

	ok, err := Try(context.Background(), selfID(t), cfg, nil, now, bctx, fs)
	require.NoError(t, err)
	assert.True(t, ok)

	gotMtime, _, exists, err := fs.Stat("/dist/a.js")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, now, gotMtime)

	prior, recorded := bctx.UnchangedPriorMtime("/dist/a.js")
	require.True(t, recorded)
	assert.Equal(t, t0(0), prior)
}

func TestTry_TouchForward_MissingOutput_FallsBack(t *testing.T) {
	fs := newFakeFS() // /dist/a.js was never written
	cfg := &config.ProjectConfig{InputFiles: []string{"/src/a.ts"}, OutDir: "/dist", RootDir: "/src"}
	bctx := buildctx.New()

	ok, err := Try(context.Background(), selfID(t), cfg, nil, t0(100), bctx, fs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTry_BundleReconstruction_RewritesConcatenationAndOffset(t *testing.T) {
	fs := newFakeFS()

	upstreamID := pathid.MustCanonicalize("/proj/upstream/tsconfig.json")
	fs.put("/upstream/dist/bundle.js", []byte("UPSTREAM"), t0(0))

	// The self bundle currently contains upstream's old content (4 bytes,
	// arbitrary placeholder) followed by this project's own contribution.
	fs.put("/self/dist/bundle.js", []byte("OLDXSELFCODE"), t0(0))
	descriptor, err := encodeDescriptor(Descriptor{OriginalOffset: 4, TotalLength: 12})
	require.NoError(t, err)
	fs.put(SidecarPath("/self/dist/bundle.js"), descriptor, t0(0))

	cfg := &config.ProjectConfig{
		OutFile:     "/self/dist/bundle.js",
		References:  []config.Reference{{Target: upstreamID, Prepend: true}},
		Declaration: true,
	}
	bctx := buildctx.New()
	now := t0(50)

	refs := []ReferenceOutFile{{Target: upstreamID, OutFile: "/upstream/dist/bundle.js"}}

	ok, err := Try(context.Background(), selfID(t), cfg, refs, now, bctx, fs)
	require.NoError(t, err)
	require.True(t, ok)

	newBundle := fs.data["/self/dist/bundle.js"]
	assert.Equal(t, "UPSTREAMSELFCODE", string(newBundle))

	rawDescriptor := fs.data[SidecarPath("/self/dist/bundle.js")]
	newDescriptor, err := decodeDescriptor(rawDescriptor)
	require.NoError(t, err)
	assert.Equal(t, int64(len("UPSTREAM")), newDescriptor.OriginalOffset)
	assert.Equal(t, int64(len(newBundle)), newDescriptor.TotalLength)
}

func TestTry_BundleReconstruction_SidecarMissing_FallsBack(t *testing.T) {
	fs := newFakeFS()
	fs.put("/self/dist/bundle.js", []byte("SELFCODE"), t0(0))
	// no sidecar written

	upstreamID := pathid.MustCanonicalize("/proj/upstream/tsconfig.json")
	cfg := &config.ProjectConfig{
		OutFile:    "/self/dist/bundle.js",
		References: []config.Reference{{Target: upstreamID, Prepend: true}},
	}

	ok, err := Try(context.Background(), selfID(t), cfg, nil, t0(50), buildctx.New(), fs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTry_BundleReconstruction_SidecarLengthMismatch_FallsBack(t *testing.T) {
	fs := newFakeFS()
	fs.put("/self/dist/bundle.js", []byte("SELFCODE"), t0(0)) // 8 bytes
	descriptor, err := encodeDescriptor(Descriptor{OriginalOffset: 0, TotalLength: 999})
	require.NoError(t, err)
	fs.put(SidecarPath("/self/dist/bundle.js"), descriptor, t0(0))

	upstreamID := pathid.MustCanonicalize("/proj/upstream/tsconfig.json")
	cfg := &config.ProjectConfig{
		OutFile:    "/self/dist/bundle.js",
		References: []config.Reference{{Target: upstreamID, Prepend: true}},
	}

	ok, err := Try(context.Background(), selfID(t), cfg, nil, t0(50), buildctx.New(), fs)
	require.NoError(t, err)
	assert.False(t, ok)
}
