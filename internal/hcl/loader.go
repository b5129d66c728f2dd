package hcl

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
)

//go:embed defaults.hcl
var defaultPipeline []byte

// DefaultPipelineName is the file name reported for the embedded pipeline.
const DefaultPipelineName = "<default>/assetgrid.hcl"

// DefaultPipeline returns the source of the built-in pipeline.
func DefaultPipeline() []byte {
	return append([]byte(nil), defaultPipeline...)
}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found at paths, merges their blocks into one
// model, fills defaults and validates the result. Paths may be files or
// directories; paths that do not exist are skipped. When no file is found
// at all the embedded default pipeline is loaded instead.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var files []*hcl.File
	if len(hclFiles) == 0 {
		logger.Info("📄 No pipeline file found, using the built-in default pipeline.")
		f, diags := parser.ParseHCL(defaultPipeline, DefaultPipelineName)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", DefaultPipelineName, diags)
		}
		files = append(files, f)
	}
	for _, name := range hclFiles {
		f, diags := parser.ParseHCLFile(name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", name, diags)
		}
		files = append(files, f)
	}

	model := &config.Model{}
	for _, f := range files {
		if err := l.merge(model, f); err != nil {
			return nil, err
		}
	}

	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "watches", len(model.Watches))
	return model, nil
}

// LoadBytes loads a single in-memory pipeline declaration.
func (l *Loader) LoadBytes(src []byte, filename string) (*config.Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	model := &config.Model{}
	if err := l.merge(model, f); err != nil {
		return nil, err
	}
	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// merge decodes one file's blocks into the model. Singleton blocks (server,
// dev, release) may be declared once across all files.
func (l *Loader) merge(model *config.Model, f *hcl.File) error {
	name := f.Body.MissingItemRange().Filename

	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}

	for _, b := range root.Tasks {
		t, err := translateTask(b)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		model.Tasks = append(model.Tasks, t)
	}
	for _, b := range root.Watches {
		model.Watches = append(model.Watches, translateWatch(b))
	}

	if len(root.Servers) > 1 || (len(root.Servers) == 1 && model.Server != nil) {
		return fmt.Errorf("%s: server block declared more than once", name)
	}
	if len(root.Servers) == 1 {
		model.Server = translateServer(root.Servers[0])
	}

	if len(root.Devs) > 1 || (len(root.Devs) == 1 && model.Dev != nil) {
		return fmt.Errorf("%s: dev block declared more than once", name)
	}
	if len(root.Devs) == 1 {
		model.Dev = &config.Dev{Tasks: root.Devs[0].Tasks}
	}

	if len(root.Releases) > 1 || (len(root.Releases) == 1 && model.Release != nil) {
		return fmt.Errorf("%s: release block declared more than once", name)
	}
	if len(root.Releases) == 1 {
		model.Release = translateRelease(root.Releases[0])
	}
	return nil
}

// findAllHCLFiles walks all given paths and returns a sorted, flat list of
// all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("error reading directory %s: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".hcl" {
				add(filepath.Join(path, e.Name()))
			}
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
