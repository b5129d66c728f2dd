package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Composition names.
const (
	ModeDev   = "dev"
	ModeBuild = "build"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Root is the project directory every path is relative to.
	Root string `validate:"required"`
	// ConfigPath is a pipeline file or directory. Empty means Root.
	ConfigPath string
	Mode       string `validate:"oneof=dev build"`

	// Host and Port override the pipeline's server block when set.
	Host string
	Port *int `validate:"omitempty,min=0,max=65535"`

	Workers int `validate:"min=1"`
	// Poll is the polling interval of the watcher; 0 uses OS notifications.
	Poll time.Duration

	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeDev
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Poll < 0 {
		return nil, errors.New("invalid configuration: poll interval cannot be negative")
	}
	return &cfg, nil
}
