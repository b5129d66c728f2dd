package rename

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

func TestOptions_Apply(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
		in   string
		want string
	}{
		{name: "suffix", opts: Options{Suffix: ".min"}, in: "main.css", want: "main.min.css"},
		{name: "suffix keeps directories", opts: Options{Suffix: ".min"}, in: "vendor/grid.css", want: "vendor/grid.min.css"},
		{name: "prefix", opts: Options{Prefix: "_"}, in: "header.html", want: "_header.html"},
		{name: "extname without dot", opts: Options{Extname: "html"}, in: "index.tmpl", want: "index.html"},
		{name: "basename", opts: Options{Basename: "app"}, in: "js/common.js", want: "js/app.js"},
		{name: "dirname", opts: Options{Dirname: "min"}, in: "js/common.js", want: "min/common.js"},
		{name: "no extension", opts: Options{Suffix: "-1"}, in: "LICENSE", want: "LICENSE-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.opts.Apply(tc.in))
		})
	}
}

func TestRename(t *testing.T) {
	transform, err := New(registry.Env{}, map[string]any{"suffix": ".min"})
	require.NoError(t, err)
	in := asset.New("app/js", "common.js", []byte("x"))

	out, err := transform(context.Background(), []*asset.File{in})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "common.min.js", out[0].Path)
	assert.Equal(t, "common.js", in.Path)
}

func TestRename_RequiresAnOption(t *testing.T) {
	_, err := New(registry.Env{}, nil)

	assert.ErrorContains(t, err, "at least one")
}
