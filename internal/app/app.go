package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/devserver"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/scheduler"
	"github.com/vk/assetgrid/internal/task"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	root     string
	model    *config.Model
	registry *registry.Registry
	tasks    *task.Graph
	executor *executor.Executor

	server    *devserver.Server
	scheduler *scheduler.Scheduler

	// removeAll wipes the distribution directory.
	removeAll func(path string) error
}

// NewApp is the constructor for the main application. It loads the pipeline,
// registers the adapters of modules (all core modules when none are given),
// compiles every task and checks the dependency graph for cycles.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	configPath := root
	if cfg.ConfigPath != "" {
		configPath = cfg.ConfigPath
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(root, configPath)
		}
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("pipeline file: %w", err)
		}
	}

	model, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Host != "" {
		model.Server.Host = cfg.Host
	}
	if cfg.Port != nil {
		model.Server.Port = *cfg.Port
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New(registry.Env{Root: root})
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "adapters", reg.Names())

	tasks := task.NewGraph(root, reg)
	deps := dag.New()
	for _, def := range model.Tasks {
		if err := tasks.Register(def); err != nil {
			return nil, err
		}
		deps.AddNode(def.Name)
	}
	for _, def := range model.Tasks {
		for _, dep := range def.DependsOn {
			if err := deps.AddEdge(dep, def.Name); err != nil {
				return nil, fmt.Errorf("task %q: %w", def.Name, err)
			}
		}
	}
	if err := deps.DetectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Task graph built.", "tasks", len(model.Tasks))

	server := devserver.New(devserver.Options{
		Root:      filepath.Join(root, filepath.FromSlash(model.Server.Root)),
		Host:      model.Server.Host,
		Port:      model.Server.Port,
		ClientURL: model.Server.ClientURL,
	})

	schedOpts := []scheduler.Option{scheduler.WithSkipDirs(model.Release.Dist)}
	if cfg.Poll > 0 {
		schedOpts = append(schedOpts, scheduler.WithPolling(cfg.Poll))
	}
	exec := executor.New(deps, tasks, cfg.Workers)
	sched := scheduler.New(root, exec, server, schedOpts...)
	for _, w := range model.Watches {
		if err := sched.Watch(*w); err != nil {
			return nil, err
		}
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		root:      root,
		model:     model,
		registry:  reg,
		tasks:     tasks,
		executor:  exec,
		server:    server,
		scheduler: sched,
		removeAll: os.RemoveAll,
	}, nil
}

// Run executes the composition selected by the configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	switch a.config.Mode {
	case ModeBuild:
		return a.Release(ctx)
	case ModeDev:
		return a.Dev(ctx)
	default:
		return fmt.Errorf("unknown mode %q", a.config.Mode)
	}
}

// Model returns the loaded pipeline model.
func (a *App) Model() *config.Model {
	return a.model
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Server returns the dev server. It only listens while Dev runs.
func (a *App) Server() *devserver.Server {
	return a.server
}
