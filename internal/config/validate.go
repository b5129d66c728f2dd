package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the model's fields and every cross reference between
// blocks. All problems found are returned joined together.
func (m *Model) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}

	var errs []error
	known := make(map[string]struct{}, len(m.Tasks))
	for _, t := range m.Tasks {
		if _, dup := known[t.Name]; dup {
			errs = append(errs, fmt.Errorf("task %q declared more than once", t.Name))
		}
		known[t.Name] = struct{}{}
	}

	refs := func(owner string, names []string) {
		for _, name := range names {
			if _, ok := known[name]; !ok {
				errs = append(errs, fmt.Errorf("%s references unknown task %q", owner, name))
			}
		}
	}
	for _, t := range m.Tasks {
		refs(fmt.Sprintf("task %q depends_on", t.Name), t.DependsOn)
	}
	for _, w := range m.Watches {
		refs(fmt.Sprintf("watch %q", w.Name), w.Tasks)
	}
	refs("dev", m.Dev.Tasks)
	refs("release prebuild", m.Release.Prebuild)
	refs("release", m.Release.Tasks)

	if err := checkDist(m.Release.Dist); err != nil {
		errs = append(errs, err)
	}
	for _, r := range m.Release.Relocate {
		if !within(m.Release.Dist, r.Dest) {
			errs = append(errs, fmt.Errorf("relocate %q: dest %q is outside the distribution directory %q", r.Name, r.Dest, m.Release.Dist))
		}
	}

	return errors.Join(errs...)
}

// checkDist rejects distribution directories whose removal would wipe the
// project root or escape it.
func checkDist(dist string) error {
	if filepath.IsAbs(dist) {
		return fmt.Errorf("release dist %q must be relative to the project root", dist)
	}
	clean := path.Clean(filepath.ToSlash(dist))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("release dist %q must be a directory inside the project root", dist)
	}
	return nil
}

func within(parent, child string) bool {
	p := path.Clean(filepath.ToSlash(parent))
	c := path.Clean(filepath.ToSlash(child))
	return c == p || strings.HasPrefix(c, p+"/")
}
