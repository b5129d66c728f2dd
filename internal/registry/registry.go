package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/assetgrid/internal/asset"
)

// ErrUnknownAdapter is returned when a step names an adapter nobody registered.
var ErrUnknownAdapter = errors.New("unknown adapter")

// Transform is a single pipeline stage over an in-memory file stream.
type Transform func(ctx context.Context, files []*asset.File) ([]*asset.File, error)

// Env is what a factory knows about the project it builds transforms for.
type Env struct {
	// Root is the project root all declared paths are relative to.
	Root string
}

// Factory decodes a step's options and returns the transform it describes.
type Factory func(env Env, options map[string]any) (Transform, error)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the adapter factories for a single application instance.
type Registry struct {
	env       Env
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates and initializes a new Registry instance whose factories build
// transforms for env.
func New(env Env) *Registry {
	return &Registry{
		env:       env,
		factories: make(map[string]Factory),
	}
}

// RegisterAdapter registers a factory under the given adapter name.
func (r *Registry) RegisterAdapter(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("adapter with name '%s' already registered", name))
	}
	slog.Debug("Registering adapter.", "name", name)
	r.factories[name] = factory
}

// Has reports whether an adapter with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered adapter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build looks up the named adapter and builds a transform from options.
func (r *Registry) Build(name string, options map[string]any) (Transform, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}

	if options == nil {
		options = map[string]any{}
	}
	transform, err := factory(r.env, options)
	if err != nil {
		return nil, fmt.Errorf("adapter %q: invalid options: %w", name, err)
	}
	return transform, nil
}
