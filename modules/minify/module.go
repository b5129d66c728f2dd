// Package minify minifies stylesheets, scripts, markup and SVG files. The
// minifier is picked from each file's extension unless a media type is set
// explicitly.
package minify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the minify adapter.
type Options struct {
	// Type forces a media type such as "text/css" for every file.
	Type string `option:"type"`
}

var mediaTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".html": "text/html",
	".htm":  "text/html",
	".svg":  "image/svg+xml",
	".json": "application/json",
}

// NewMinifier returns a minifier configured for every supported media type.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]json$`), json.Minify)
	return m
}

// MediaType returns the media type used for a file with the given extension.
func MediaType(ext string) (string, bool) {
	mt, ok := mediaTypes[strings.ToLower(ext)]
	return mt, ok
}

// New builds a minify transform from raw step options.
func New(_ registry.Env, raw map[string]any) (registry.Transform, error) {
	var opts Options
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	m := NewMinifier()

	return func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		out := make([]*asset.File, len(files))
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			mt := opts.Type
			if mt == "" {
				var ok bool
				if mt, ok = MediaType(f.Ext()); !ok {
					return nil, fmt.Errorf("%s: no minifier for %q files", f.Source(), f.Ext())
				}
			}
			b, err := m.Bytes(mt, f.Contents)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Source(), err)
			}
			out[i] = f.WithContents(b)
		}
		return out, nil
	}, nil
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("minify", New)
}
