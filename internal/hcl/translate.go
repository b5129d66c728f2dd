package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/assetgrid/internal/config"
)

func translateTask(b *taskBlock) (*config.Task, error) {
	t := &config.Task{
		Name:         b.Name,
		Description:  b.Description,
		Sources:      b.Sources,
		Destinations: b.Destinations,
		DependsOn:    b.DependsOn,
	}
	for i, s := range b.Steps {
		opts, err := translateOptions(s.Options)
		if err != nil {
			return nil, fmt.Errorf("task %q: step %d (%s): %w", b.Name, i+1, s.Adapter, err)
		}
		t.Steps = append(t.Steps, &config.Step{Adapter: s.Adapter, Options: opts})
	}
	return t, nil
}

// translateOptions evaluates every attribute of a step body into a Go value.
func translateOptions(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	opts := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		goVal, err := ctyValueToInterface(val)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		opts[name] = goVal
	}
	return opts, nil
}

func translateWatch(b *watchBlock) *config.Watch {
	return &config.Watch{
		Name:   b.Name,
		Globs:  b.Globs,
		Ignore: b.Ignore,
		Tasks:  b.Tasks,
		Reload: config.ReloadKind(b.Reload),
	}
}

func translateServer(b *serverBlock) *config.Server {
	s := &config.Server{
		Root:      b.Root,
		Host:      b.Host,
		Port:      config.DefaultServerPort,
		ClientURL: b.ClientURL,
	}
	if b.Port != nil {
		s.Port = *b.Port
	}
	return s
}

func translateRelease(b *releaseBlock) *config.Release {
	r := &config.Release{
		Dist:     b.Dist,
		LockFile: b.LockFile,
		Prebuild: b.Prebuild,
		Tasks:    b.Tasks,
	}
	for _, rel := range b.Relocate {
		r.Relocate = append(r.Relocate, &config.Relocation{Name: rel.Name, Sources: rel.Sources, Dest: rel.Dest})
	}
	return r
}
