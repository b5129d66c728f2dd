package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/asset"
)

func passthrough(Env, map[string]any) (Transform, error) {
	return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
		return files, nil
	}, nil
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	// --- Arrange ---
	r := New(Env{Root: t.TempDir()})
	r.RegisterAdapter("noop", passthrough)

	// --- Act ---
	transform, err := r.Build("noop", nil)

	// --- Assert ---
	require.NoError(t, err)
	in := []*asset.File{asset.New("app", "a.txt", []byte("a"))}
	out, err := transform(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, r.Has("noop"))
	assert.Equal(t, []string{"noop"}, r.Names())
}

func TestRegistry_UnknownAdapter(t *testing.T) {
	r := New(Env{Root: t.TempDir()})

	_, err := r.Build("sass", nil)

	require.ErrorIs(t, err, ErrUnknownAdapter)
	assert.Contains(t, err.Error(), `"sass"`)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := New(Env{Root: t.TempDir()})
	r.RegisterAdapter("noop", passthrough)

	assert.Panics(t, func() { r.RegisterAdapter("noop", passthrough) })
}

func TestDecodeOptions(t *testing.T) {
	type opts struct {
		Suffix  string   `option:"suffix"`
		Quality int      `option:"quality"`
		Targets []string `option:"targets"`
	}

	t.Run("decodes hcl-shaped values", func(t *testing.T) {
		var o opts
		err := DecodeOptions(map[string]any{
			"suffix":  ".min",
			"quality": float64(82),
			"targets": []any{"chrome58", "safari11"},
		}, &o)

		require.NoError(t, err)
		assert.Equal(t, opts{Suffix: ".min", Quality: 82, Targets: []string{"chrome58", "safari11"}}, o)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		var o opts
		err := DecodeOptions(map[string]any{"sufix": ".min"}, &o)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "sufix")
	})
}
