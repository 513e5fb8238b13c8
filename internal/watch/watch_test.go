package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pbuild/internal/buildgraph"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/pathid"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_Install_WatchesConfigDirsAndInputs(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsconfig.json")
	srcDir := filepath.Join(dir, "src")
	writeFile(t, configPath, "{}")
	writeFile(t, filepath.Join(srcDir, "a.ts"), "a")

	id := pathid.MustCanonicalize(configPath)
	cfg := &config.ProjectConfig{
		InputFiles:          []string{filepath.Join(srcDir, "a.ts")},
		OutDir:              filepath.Join(dir, "dist"),
		RootDir:             srcDir,
		WildcardDirectories: map[string]config.WatchMode{srcDir: config.WatchRecursive},
	}
	graph := &buildgraph.Result{
		Queue:   &buildgraph.Queue{Layers: [][]pathid.ID{{id}}},
		Configs: map[string]*config.ProjectConfig{id.String(): cfg},
	}

	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Install(context.Background(), graph))
	assert.True(t, w.configPaths[id.String()])
	assert.True(t, w.watchedDirs[srcDir])
}

func TestWatcher_ConfigChange_ReportsConfigChangedKind(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsconfig.json")
	writeFile(t, configPath, "{}")

	id := pathid.MustCanonicalize(configPath)
	cfg := &config.ProjectConfig{OutDir: filepath.Join(dir, "dist")}
	graph := &buildgraph.Result{
		Queue:   &buildgraph.Queue{Layers: [][]pathid.ID{{id}}},
		Configs: map[string]*config.ProjectConfig{id.String(): cfg},
	}

	w, err := New()
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 20 * time.Millisecond

	require.NoError(t, w.Install(context.Background(), graph))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Run(ctx)

	writeFile(t, configPath, `{"compilerOptions":{}}`)

	select {
	case ev := <-events:
		assert.Equal(t, ConfigChanged, ev.Kind)
		assert.Contains(t, ev.Paths, configPath)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestWatcher_SourceChange_ReportsSourceChangedKind(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tsconfig.json")
	srcDir := filepath.Join(dir, "src")
	writeFile(t, configPath, "{}")
	writeFile(t, filepath.Join(srcDir, "a.ts"), "a")

	id := pathid.MustCanonicalize(configPath)
	cfg := &config.ProjectConfig{
		InputFiles:          []string{filepath.Join(srcDir, "a.ts")},
		OutDir:              filepath.Join(dir, "dist"),
		RootDir:             srcDir,
		WildcardDirectories: map[string]config.WatchMode{srcDir: config.WatchFlat},
	}
	graph := &buildgraph.Result{
		Queue:   &buildgraph.Queue{Layers: [][]pathid.ID{{id}}},
		Configs: map[string]*config.ProjectConfig{id.String(): cfg},
	}

	w, err := New()
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 20 * time.Millisecond

	require.NoError(t, w.Install(context.Background(), graph))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Run(ctx)

	writeFile(t, filepath.Join(srcDir, "a.ts"), "changed")

	select {
	case ev := <-events:
		assert.Equal(t, SourceChanged, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
