package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/vk/assetgrid/internal/registry"
)

// Graph holds the registered tasks of one application instance.
type Graph struct {
	root     string
	registry *registry.Registry

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewGraph creates an empty Graph whose tasks resolve paths against root and
// build their steps from reg.
func NewGraph(root string, reg *registry.Registry) *Graph {
	return &Graph{
		root:     root,
		registry: reg,
		tasks:    make(map[string]*Task),
	}
}

// Register compiles a task declaration and adds it to the graph. Empty
// names, tasks without sources, duplicate names and unknown adapters are
// rejected.
func (g *Graph) Register(def *config.Task) error {
	if def.Name == "" {
		return errors.New("task name must not be empty")
	}
	if len(def.Sources) == 0 {
		return fmt.Errorf("task %q: at least one source glob is required", def.Name)
	}

	t := &Task{
		Name:         def.Name,
		Description:  def.Description,
		Sources:      append([]string(nil), def.Sources...),
		Destinations: append([]string(nil), def.Destinations...),
		DependsOn:    append([]string(nil), def.DependsOn...),
	}
	for i, s := range def.Steps {
		compiled, err := g.compile(s)
		if err != nil {
			return fmt.Errorf("task %q: step %d (%s): %w", def.Name, i+1, s.Adapter, err)
		}
		t.steps = append(t.steps, compiled)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.tasks[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
	}
	g.tasks[t.Name] = t
	return nil
}

func (g *Graph) compile(s *config.Step) (step, error) {
	if s.Adapter == DestAdapter {
		var opts destOptions
		if err := registry.DecodeOptions(s.Options, &opts); err != nil {
			return step{}, err
		}
		if opts.Dir == "" {
			return step{}, errors.New("dest requires a dir")
		}
		return step{adapter: DestAdapter, dir: opts.Dir}, nil
	}

	transform, err := g.registry.Build(s.Adapter, s.Options)
	if err != nil {
		return step{}, err
	}
	return step{adapter: s.Adapter, transform: transform}, nil
}

// Task returns the registered task with the given name.
func (g *Graph) Task(name string) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[name]
	return t, ok
}

// Names returns all registered task names in sorted order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named task once and blocks until it is done. Runs of the
// same task never overlap; a second caller waits for the first to finish.
// The returned Result is non-nil for every registered task, even on failure.
func (g *Graph) Run(ctx context.Context, name string) (*Result, error) {
	t, ok := g.Task(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "task", name, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	logger.Debug("Task run started.")
	start := time.Now()
	written, err := g.execute(ctx, t)
	res := &Result{
		Task:     name,
		RunID:    runID,
		Written:  written,
		Duration: time.Since(start),
		Err:      err,
	}
	metrics.TaskDuration.WithLabelValues(name).Observe(res.Duration.Seconds())

	if err != nil {
		metrics.TaskRuns.WithLabelValues(name, "failure").Inc()
		logger.Error("❌ Task failed.", "error", err, "duration", res.Duration)
		return res, err
	}
	metrics.TaskRuns.WithLabelValues(name, "success").Inc()
	metrics.FilesWritten.WithLabelValues(name).Add(float64(len(written)))
	logger.Info("✅ Task finished.", "files", len(written), "duration", res.Duration)
	return res, nil
}

// Start runs the named task in the background. The returned channel
// receives exactly one Result and is then closed.
func (g *Graph) Start(ctx context.Context, name string) <-chan *Result {
	done := make(chan *Result, 1)
	go func() {
		defer close(done)
		res, err := g.Run(ctx, name)
		if res == nil {
			res = &Result{Task: name, Err: err}
		}
		done <- res
	}()
	return done
}
