package imagemin

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

// flatPNG encodes a single-colour image without compression.
func flatPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressor_PNG(t *testing.T) {
	// --- Arrange ---
	c, err := NewCompressor(82, 8)
	require.NoError(t, err)
	src := flatPNG(t)

	// --- Act ---
	first, cached, err := c.Compress(src)
	require.NoError(t, err)
	second, cachedAgain, err := c.Compress(src)
	require.NoError(t, err)

	// --- Assert ---
	assert.Less(t, len(first), len(src))
	assert.False(t, cached)
	assert.True(t, cachedAgain)
	assert.Equal(t, first, second)
	_, err = png.Decode(bytes.NewReader(first))
	assert.NoError(t, err)
}

func TestCompressor_UnknownFormatPassesThrough(t *testing.T) {
	c, err := NewCompressor(82, 8)
	require.NoError(t, err)
	src := []byte("wOF2 not really a font")

	out, _, err := c.Compress(src)

	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestCompressor_InvalidQuality(t *testing.T) {
	_, err := NewCompressor(0, 8)

	assert.ErrorContains(t, err, "jpeg_quality")
}

func TestImagemin_Transform(t *testing.T) {
	transform, err := New(registry.Env{}, map[string]any{"jpeg_quality": float64(70)})
	require.NoError(t, err)
	src := flatPNG(t)

	out, err := transform(context.Background(), []*asset.File{asset.New("app/img", "icons/red.png", src)})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "icons/red.png", out[0].Path)
	assert.Less(t, len(out[0].Contents), len(src))
}
