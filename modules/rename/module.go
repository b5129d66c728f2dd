// Package rename rewrites the paths of a stream's files, typically to inject
// a ".min" suffix between the base name and the extension.
package rename

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the rename adapter. Every field is optional but at
// least one must be set.
type Options struct {
	Prefix   string `option:"prefix"`
	Suffix   string `option:"suffix"`
	Basename string `option:"basename"`
	Extname  string `option:"extname"`
	Dirname  string `option:"dirname"`
}

// Apply returns the renamed form of the slash-separated path p.
func (o Options) Apply(p string) string {
	dir := path.Dir(p)
	ext := path.Ext(p)
	stem := strings.TrimSuffix(path.Base(p), ext)

	if o.Basename != "" {
		stem = o.Basename
	}
	if o.Extname != "" {
		ext = o.Extname
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
	}
	if o.Dirname != "" {
		dir = o.Dirname
	}
	return path.Join(dir, o.Prefix+stem+o.Suffix+ext)
}

// New builds a rename transform from raw step options.
func New(_ registry.Env, raw map[string]any) (registry.Transform, error) {
	var opts Options
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts == (Options{}) {
		return nil, errors.New("rename needs at least one of prefix, suffix, basename, extname or dirname")
	}

	return func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
		out := make([]*asset.File, len(files))
		for i, f := range files {
			out[i] = f.WithPath(opts.Apply(f.Path))
		}
		return out, nil
	}, nil
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("rename", New)
}
