// Package template renders page templates written with html/template into
// markup. Shared partials are parsed alongside every page and the sprig
// function library is available to all of them.
package template

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/Masterminds/sprig/v3"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the template adapter.
type Options struct {
	// Partials are root-relative globs of templates every page can call
	// with {{ template "<path relative to glob base>" . }}.
	Partials []string `option:"partials"`
	// Ext replaces the extension of rendered pages. Defaults to ".html".
	Ext string `option:"ext"`
	// Data is passed to every page as its dot value.
	Data map[string]any `option:"data"`
}

// New builds a template transform from raw step options.
func New(env registry.Env, raw map[string]any) (registry.Transform, error) {
	opts := Options{Ext: ".html"}
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}

	return func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		partials, err := loadPartials(env.Root, opts.Partials)
		if err != nil {
			return nil, err
		}

		out := make([]*asset.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rendered, err := render(f, partials, opts.Data)
			if err != nil {
				return nil, err
			}
			out = append(out, f.WithContents(rendered).WithExt(opts.Ext))
		}
		return out, nil
	}, nil
}

// loadPartials reads the partial templates. They are re-read on every run
// so edits show up in the development loop.
func loadPartials(root string, patterns []string) ([]*asset.File, error) {
	matches, err := fsutil.Expand(root, patterns)
	if err != nil {
		return nil, fmt.Errorf("partials: %w", err)
	}
	partials := make([]*asset.File, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m.Source())))
		if err != nil {
			return nil, fmt.Errorf("partials: %w", err)
		}
		partials = append(partials, asset.New(m.Base, m.Path, b))
	}
	return partials, nil
}

func render(page *asset.File, partials []*asset.File, data map[string]any) ([]byte, error) {
	tmpl := template.New(page.Path).Funcs(sprig.HtmlFuncMap())
	for _, p := range partials {
		if p.Source() == page.Source() {
			continue
		}
		if _, err := tmpl.New(p.Path).Parse(string(p.Contents)); err != nil {
			return nil, fmt.Errorf("parse partial %s: %w", p.Source(), err)
		}
	}
	if _, err := tmpl.Parse(string(page.Contents)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.Source(), err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", page.Source(), err)
	}
	return buf.Bytes(), nil
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("template", New)
}
