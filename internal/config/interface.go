package config

import (
	"context"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads pipeline declarations from the given paths and translates
	// them into the format-agnostic model. When no declaration file exists
	// at any path, the loader falls back to its built-in default pipeline.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
