// Package concat joins every file of a stream into a single file, in stream
// order.
package concat

import (
	"bytes"
	"context"
	"errors"

	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the concat adapter.
type Options struct {
	// File is the path of the joined file relative to the destination.
	File string `option:"file"`
	// Separator is written between two files. Defaults to a newline.
	Separator *string `option:"separator"`
}

// New builds a concat transform from raw step options.
func New(_ registry.Env, raw map[string]any) (registry.Transform, error) {
	var opts Options
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.File == "" {
		return nil, errors.New("concat requires a file name")
	}
	sep := []byte("\n")
	if opts.Separator != nil {
		sep = []byte(*opts.Separator)
	}

	return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
		if len(files) == 0 {
			return nil, nil
		}
		parts := make([][]byte, len(files))
		for i, f := range files {
			parts[i] = f.Contents
		}
		joined := asset.New(files[0].Base, opts.File, bytes.Join(parts, sep))
		return []*asset.File{joined}, nil
	}, nil
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("concat", New)
}
