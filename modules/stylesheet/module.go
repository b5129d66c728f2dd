// Package stylesheet compiles stylesheets with esbuild: @import statements
// are bundled, modern syntax is lowered and vendor prefixes are added for
// the configured browser targets.
package stylesheet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options configures the stylesheet adapter.
type Options struct {
	// Targets are browser versions such as "chrome58" or "safari11".
	Targets []string `option:"targets"`
	// Minify makes esbuild minify the output as well.
	Minify bool `option:"minify"`
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var targetPattern = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`)

// ParseTargets converts target strings into esbuild engines.
func ParseTargets(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		m := targetPattern.FindStringSubmatch(strings.ToLower(target))
		if m == nil {
			return nil, fmt.Errorf("invalid target %q", target)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, fmt.Errorf("unsupported browser %q in target %q", m[1], target)
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}
	return engines, nil
}

// New builds a stylesheet transform from raw step options.
func New(env registry.Env, raw map[string]any) (registry.Transform, error) {
	var opts Options
	if err := registry.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	engines, err := ParseTargets(opts.Targets)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		out := make([]*asset.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			compiled, err := compile(env.Root, f, engines, opts.Minify)
			if err != nil {
				return nil, err
			}
			out = append(out, f.WithContents(compiled).WithExt(".css"))
		}
		return out, nil
	}, nil
}

func compile(root string, f *asset.File, engines []api.Engine, minify bool) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(f.Contents),
			ResolveDir: filepath.Join(root, filepath.FromSlash(f.Base), filepath.FromSlash(f.Dir())),
			Sourcefile: f.Source(),
			Loader:     api.LoaderCSS,
		},
		Bundle:           true,
		Write:            false,
		Engines:          engines,
		MinifyWhitespace: minify,
		MinifySyntax:     minify,
		LegalComments:    api.LegalCommentsNone,
		LogLevel:         api.LogLevelSilent,
		External:         []string{"*.woff", "*.woff2", "*.ttf", "*.eot", "*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp"},
	})
	if len(result.Errors) > 0 {
		return nil, buildError(result.Errors)
	}
	if len(result.OutputFiles) == 0 {
		return nil, fmt.Errorf("%s: no output produced", f.Source())
	}
	return result.OutputFiles[0].Contents, nil
}

func buildError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if loc := msg.Location; loc != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}

// Register registers the adapter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAdapter("stylesheet", New)
}
