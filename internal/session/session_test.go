package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pbuild/internal/compiler"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/diskfs"
	"github.com/vk/pbuild/internal/orchestrator"
	"github.com/vk/pbuild/internal/pathid"
)

// fakeLoader serves a single fixed ProjectConfig regardless of the
// requested id, enough to exercise Session.Build's wiring.
type fakeLoader struct {
	cfg *config.ProjectConfig
}

func (f *fakeLoader) Load(ctx context.Context, id pathid.ID) (*config.ProjectConfig, error) {
	return f.cfg, nil
}

// fakeCompiler emits fixed content for every project it's asked to compile.
type fakeCompiler struct {
	emitPath string
	emitData []byte
}

func (f *fakeCompiler) Compile(ctx context.Context, project *config.ProjectConfig) (compiler.Result, error) {
	return compiler.Result{Emits: []compiler.Emit{{Path: f.emitPath, Data: f.emitData}}}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSession_Build_CompilesOutOfDateProject(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsconfig.json")
	srcPath := filepath.Join(dir, "src", "a.ts")
	outPath := filepath.Join(dir, "dist", "a.js")

	writeFile(t, configPath, "{}")
	writeFile(t, srcPath, "source")
	// no output written yet -> Missing on first analysis

	cfg := &config.ProjectConfig{
		InputFiles: []string{srcPath},
		OutDir:     filepath.Join(dir, "dist"),
		RootDir:    filepath.Join(dir, "src"),
	}

	s := &Session{
		Loader:   &fakeLoader{cfg: cfg},
		Compiler: &fakeCompiler{emitPath: outPath, emitData: []byte("compiled")},
		Clock:    diskfs.NewClock(),
		FS:       diskfs.NewFileSystem(),
	}

	root := pathid.MustCanonicalize(configPath)
	graph, report, err := s.Build(context.Background(), []pathid.ID{root}, orchestrator.Options{})
	require.NoError(t, err)
	require.NotNil(t, graph)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Built)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "compiled", string(data))
}

func TestSession_Watch_ConfigChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsconfig.json")
	srcPath := filepath.Join(dir, "src", "a.ts")
	outPath := filepath.Join(dir, "dist", "a.js")

	writeFile(t, configPath, "{}")
	writeFile(t, srcPath, "source")

	cfg := &config.ProjectConfig{
		InputFiles: []string{srcPath},
		OutDir:     filepath.Join(dir, "dist"),
		RootDir:    filepath.Join(dir, "src"),
	}

	s := &Session{
		Loader:        &fakeLoader{cfg: cfg},
		Compiler:      &fakeCompiler{emitPath: outPath, emitData: []byte("compiled")},
		Clock:         diskfs.NewClock(),
		FS:            diskfs.NewFileSystem(),
		WatchDebounce: 20 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	root := pathid.MustCanonicalize(configPath)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, []pathid.ID{root}, orchestrator.Options{}) }()

	// Give Watch time to run its initial build and install watches.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.Remove(outPath)) // force the next walk to see Missing again
	writeFile(t, configPath, `{"compilerOptions":{}}`)

	time.Sleep(500 * time.Millisecond)
	_, err := os.Stat(outPath)
	assert.NoError(t, err, "expected the config-change rebuild to have recompiled the output")

	cancel()
	<-done
}
