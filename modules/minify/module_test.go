package minify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

func TestMinify(t *testing.T) {
	testCases := []struct {
		name string
		file string
		in   string
		want string
	}{
		{name: "css", file: "main.css", in: "body {\n  color: red;\n}\n", want: "body{color:red}"},
		{name: "js", file: "common.js", in: "var  answer = 42;\n", want: "var answer=42"},
	}

	transform, err := New(registry.Env{}, nil)
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := asset.New("app", tc.file, []byte(tc.in))

			out, err := transform(context.Background(), []*asset.File{in})

			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tc.want, string(out[0].Contents))
			assert.Equal(t, tc.file, out[0].Path)
			assert.Equal(t, tc.in, string(in.Contents))
		})
	}
}

func TestMinify_MatchesMinifier(t *testing.T) {
	src := []byte(".a { margin: 0px 0px; }\n.b { color: #ff0000; }\n")
	transform, err := New(registry.Env{}, nil)
	require.NoError(t, err)

	out, err := transform(context.Background(), []*asset.File{asset.New("app/css", "main.css", src)})
	require.NoError(t, err)

	want, err := NewMinifier().Bytes("text/css", src)
	require.NoError(t, err)
	assert.Equal(t, want, out[0].Contents)
}

func TestMinify_UnsupportedExtension(t *testing.T) {
	transform, err := New(registry.Env{}, nil)
	require.NoError(t, err)

	_, err = transform(context.Background(), []*asset.File{asset.New("app", "notes.txt", []byte("x"))})

	assert.ErrorContains(t, err, `no minifier for ".txt" files`)
}

func TestMinify_ForcedType(t *testing.T) {
	transform, err := New(registry.Env{}, map[string]any{"type": "text/css"})
	require.NoError(t, err)

	out, err := transform(context.Background(), []*asset.File{asset.New("app", "styles.txt", []byte("a { b: c; }"))})

	require.NoError(t, err)
	assert.Equal(t, "a{b:c}", string(out[0].Contents))
}
