// Package imagemin losslessly recompresses PNG images, re-encodes JPEG
// images at a configured quality and minifies SVG images. A file whose
// compressed form is not smaller is passed through unchanged. Results are
// cached by content hash for the lifetime of the process.
package imagemin

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/modules/minify"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the imagemin adapter.
type Options struct {
	JPEGQuality int `option:"jpeg_quality"`
	CacheSize   int `option:"cache_size"`
}

// Compressor compresses images and remembers its results.
type Compressor struct {
	quality int
	cache   *lru.Cache[uint64, []byte]
}

// NewCompressor returns a Compressor with the given JPEG quality and cache
// capacity.
func NewCompressor(quality, cacheSize int) (*Compressor, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", quality)
	}
	cache, err := lru.New[uint64, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Compressor{quality: quality, cache: cache}, nil
}

// Compress returns the compressed form of b, or b itself when compression
// does not make it smaller or the format is not handled.
func (c *Compressor) Compress(b []byte) ([]byte, bool, error) {
	key := xxhash.Sum64(b)
	if cached, ok := c.cache.Get(key); ok {
		metrics.ImageCache.WithLabelValues("hit").Inc()
		return cached, true, nil
	}
	metrics.ImageCache.WithLabelValues("miss").Inc()

	compressed, err := c.compress(b)
	if err != nil {
		return nil, false, err
	}
	if compressed == nil || len(compressed) >= len(b) {
		compressed = b
	}
	c.cache.Add(key, compressed)
	return compressed, false, nil
}

func (c *Compressor) compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch mimetype.Detect(b).String() {
	case "image/png":
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "image/jpeg":
		img, err := jpeg.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
			return nil, err
		}
	case "image/svg+xml":
		return minify.NewMinifier().Bytes("image/svg+xml", b)
	default:
		return nil, nil
	}
	return buf.Bytes(), nil
}

// New builds an imagemin transform from raw step options.
func New(_ registry.Env, raw map[string]any) (registry.Transform, error) {
	opts := Options{JPEGQuality: 82, CacheSize: 512}
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	compressor, err := NewCompressor(opts.JPEGQuality, opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		logger := ctxlog.FromContext(ctx)
		out := make([]*asset.File, len(files))
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b, cached, err := compressor.Compress(f.Contents)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Source(), err)
			}
			logger.Debug("Image processed.", "path", f.Source(), "before", len(f.Contents), "after", len(b), "cached", cached)
			out[i] = f.WithContents(b)
		}
		return out, nil
	}, nil
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("imagemin", New)
}
