package task

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/testutil"
)

// newTestRegistry returns a registry with small adapters used by the tests:
// "upper" upper-cases contents, "min" appends ".min" before the extension
// and strips spaces, and "fail" always fails.
func newTestRegistry() *registry.Registry {
	r := registry.New(registry.Env{})
	r.RegisterAdapter("upper", func(registry.Env, map[string]any) (registry.Transform, error) {
		return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
			out := make([]*asset.File, len(files))
			for i, f := range files {
				out[i] = f.WithContents(bytes.ToUpper(f.Contents))
			}
			return out, nil
		}, nil
	})
	r.RegisterAdapter("min", func(registry.Env, map[string]any) (registry.Transform, error) {
		return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
			out := make([]*asset.File, len(files))
			for i, f := range files {
				out[i] = f.WithContents(bytes.ReplaceAll(f.Contents, []byte(" "), nil)).WithExt(".min" + f.Ext())
			}
			return out, nil
		}, nil
	})
	r.RegisterAdapter("fail", func(registry.Env, map[string]any) (registry.Transform, error) {
		return func(context.Context, []*asset.File) ([]*asset.File, error) {
			return nil, errors.New("boom")
		}, nil
	})
	return r
}

func TestGraph_Register(t *testing.T) {
	valid := func() *config.Task {
		return &config.Task{Name: "styles", Sources: []string{"app/styles/*.css"}, Destinations: []string{"app/css"}}
	}

	t.Run("registers a task", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())

		require.NoError(t, g.Register(valid()))

		_, ok := g.Task("styles")
		assert.True(t, ok)
		assert.Equal(t, []string{"styles"}, g.Names())
	})

	t.Run("duplicate name", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())
		require.NoError(t, g.Register(valid()))

		err := g.Register(valid())

		assert.ErrorIs(t, err, ErrDuplicateTask)
	})

	t.Run("unknown adapter", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())
		def := valid()
		def.Steps = []*config.Step{{Adapter: "sass"}}

		err := g.Register(def)

		assert.ErrorIs(t, err, registry.ErrUnknownAdapter)
		assert.ErrorContains(t, err, `task "styles": step 1 (sass)`)
	})

	t.Run("empty name", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())
		def := valid()
		def.Name = ""

		assert.Error(t, g.Register(def))
	})

	t.Run("no sources", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())
		def := valid()
		def.Sources = nil

		assert.ErrorContains(t, g.Register(def), "at least one source glob")
	})

	t.Run("dest without dir", func(t *testing.T) {
		g := NewGraph(t.TempDir(), newTestRegistry())
		def := valid()
		def.Steps = []*config.Step{{Adapter: DestAdapter}}

		assert.ErrorContains(t, g.Register(def), "dest requires a dir")
	})
}

func TestGraph_RunUnknownTask(t *testing.T) {
	ctx, _ := testutil.Context(t)
	g := NewGraph(t.TempDir(), newTestRegistry())

	res, err := g.Run(ctx, "nope")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestGraph_RunWritesBothTaps(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"app/styles/main.css": "a { b }",
	})
	g := NewGraph(root, newTestRegistry())
	require.NoError(t, g.Register(&config.Task{
		Name:    "styles",
		Sources: []string{"app/styles/*.css"},
		Steps: []*config.Step{
			{Adapter: "upper"},
			{Adapter: DestAdapter, Options: map[string]any{"dir": "app/css"}},
			{Adapter: "min"},
		},
		Destinations: []string{"app/css"},
	}))

	// --- Act ---
	res, err := g.Run(ctx, "styles")

	// --- Assert ---
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/css/main.css", "app/css/main.min.css"}, res.Written)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "A { B }", testutil.ReadFile(t, root, "app/css/main.css"))
	assert.Equal(t, "A{B}", testutil.ReadFile(t, root, "app/css/main.min.css"))
}

func TestGraph_FailedStepLeavesPreviousOutput(t *testing.T) {
	// --- Arrange ---
	ctx, logs := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"app/styles/main.css": "new",
		"app/css/main.css":    "previous",
	})
	g := NewGraph(root, newTestRegistry())
	require.NoError(t, g.Register(&config.Task{
		Name:    "styles",
		Sources: []string{"app/styles/*.css"},
		Steps: []*config.Step{
			{Adapter: DestAdapter, Options: map[string]any{"dir": "app/css"}},
			{Adapter: "fail"},
		},
		Destinations: []string{"app/css"},
	}))

	// --- Act ---
	res, err := g.Run(ctx, "styles")

	// --- Assert ---
	require.Error(t, err)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, `task "styles": step 2 (fail): boom`, err.Error())
	require.NotNil(t, res)
	assert.Equal(t, err, res.Err)
	assert.Empty(t, res.Written)
	assert.Equal(t, "previous", testutil.ReadFile(t, root, "app/css/main.css"))
	assert.Contains(t, logs.String(), "Task failed.")
}

func TestGraph_NoSourcesMatched(t *testing.T) {
	ctx, logs := testutil.Context(t)
	g := NewGraph(t.TempDir(), newTestRegistry())
	require.NoError(t, g.Register(&config.Task{Name: "fonts", Sources: []string{"app/fonts/**/*"}, Destinations: []string{"dist/fonts"}}))

	res, err := g.Run(ctx, "fonts")

	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Contains(t, logs.String(), "No source files matched.")
}

func TestGraph_Start(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"app/js/common.js": "x"})
	g := NewGraph(root, newTestRegistry())
	require.NoError(t, g.Register(&config.Task{Name: "scripts", Sources: []string{"app/js/common.js"}, Destinations: []string{"out"}}))

	select {
	case res := <-g.Start(ctx, "scripts"):
		require.NoError(t, res.Err)
		assert.Equal(t, []string{"out/common.js"}, res.Written)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
	}
}

func TestGraph_RunsDoNotOverlap(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"src/a.txt": "a"})

	var active, maxActive atomic.Int32
	reg := registry.New(registry.Env{Root: root})
	reg.RegisterAdapter("slow", func(registry.Env, map[string]any) (registry.Transform, error) {
		return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
			return files, nil
		}, nil
	})
	g := NewGraph(root, reg)
	require.NoError(t, g.Register(&config.Task{Name: "slow", Sources: []string{"src/*.txt"}, Steps: []*config.Step{{Adapter: "slow"}}}))

	// --- Act ---
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Run(ctx, "slow")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// --- Assert ---
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestGraph_FailedWriteLeavesEveryTargetUntouched(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"app/styles/main.css": "a { b }",
		"app/css/main.css":    "previous",
		"blocked":             "a file where a directory is expected",
	})
	g := NewGraph(root, newTestRegistry())
	require.NoError(t, g.Register(&config.Task{
		Name:    "styles",
		Sources: []string{"app/styles/*.css"},
		Steps: []*config.Step{
			{Adapter: DestAdapter, Options: map[string]any{"dir": "app/css"}},
			{Adapter: "min"},
		},
		Destinations: []string{"blocked"},
	}))

	// --- Act ---
	_, err := g.Run(ctx, "styles")

	// --- Assert ---
	require.Error(t, err)
	assert.Equal(t, map[string]string{"main.css": "previous"}, testutil.ReadTree(t, filepath.Join(root, "app/css")),
		"no output is replaced and no staged file is left behind")
}

func TestGraph_NewOutputsAreWorldReadable(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"app/styles/main.css": "a"})
	g := NewGraph(root, newTestRegistry())
	require.NoError(t, g.Register(&config.Task{Name: "styles", Sources: []string{"app/styles/*.css"}, Destinations: []string{"app/css"}}))

	_, err := g.Run(ctx, "styles")

	require.NoError(t, err)
	info, err := os.Stat(filepath.Join(root, "app/css/main.css"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
