package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/task"
)

// Runner runs a single task to completion.
type Runner interface {
	Run(ctx context.Context, name string) (*task.Result, error)
}

// State is the lifecycle state of a task within one composition run.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// node is the per-run execution state of one task.
type node struct {
	id         string
	dependents []*node
	depCount   atomic.Int32
	state      atomic.Int32
	skipOnce   sync.Once
	result     *task.Result
	err        error
}

// Executor runs compositions of tasks from a dependency graph. It is safe
// to run several compositions at once.
type Executor struct {
	graph      *dag.Graph
	runner     Runner
	numWorkers int
}

// run holds the state of a single composition run.
type run struct {
	runner Runner
	wg     sync.WaitGroup
}

// New creates an Executor that schedules tasks from graph and runs them with
// runner on numWorkers concurrent workers.
func New(graph *dag.Graph, runner Runner, numWorkers int) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{
		graph:      graph,
		runner:     runner,
		numWorkers: numWorkers,
	}
}

// Report summarises one composition run.
type Report struct {
	// States holds the final state of every task that took part.
	States map[string]State
	// Results holds the results of the tasks that ran.
	Results map[string]*task.Result
}

// In returns the sorted names of the tasks in the given state.
func (r *Report) In(state State) []string {
	var names []string
	for name, s := range r.States {
		if s == state {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Run executes the named tasks and everything they depend on, and blocks
// until all of them are done, failed or skipped. The returned error joins
// the errors of the tasks that failed; skipped tasks do not add to it.
func (e *Executor) Run(ctx context.Context, names ...string) (*Report, error) {
	sub, err := e.graph.Subgraph(names...)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, sub)
}

// Rebuild executes the named tasks and everything that depends on them,
// without running their own dependencies. Dependents start once the tasks
// they depend on are done, and are skipped when one of them fails.
func (e *Executor) Rebuild(ctx context.Context, names ...string) (*Report, error) {
	sub, err := e.graph.Downstream(names...)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, sub)
}

func (e *Executor) execute(ctx context.Context, sub *dag.Graph) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	nodes, err := buildNodes(sub)
	if err != nil {
		return nil, err
	}

	report := &Report{States: make(map[string]State), Results: make(map[string]*task.Result)}
	if len(nodes) == 0 {
		return report, nil
	}

	readyChan := make(chan *node, len(nodes))
	for _, n := range nodes {
		if n.depCount.Load() == 0 {
			logger.Debug("Found root task.", "task", n.id)
			readyChan <- n
		}
	}

	r := &run{runner: e.runner}
	r.wg.Add(len(nodes))
	workers := min(e.numWorkers, len(nodes))
	logger.Debug("Starting worker pool.", "workers", workers, "tasks", len(nodes))
	for i := 0; i < workers; i++ {
		go r.worker(ctx, readyChan, i)
	}
	r.wg.Wait()
	close(readyChan)

	var errs []error
	for _, n := range nodes {
		state := State(n.state.Load())
		report.States[n.id] = state
		if n.result != nil {
			report.Results[n.id] = n.result
		}
		if state == Failed {
			errs = append(errs, n.err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// buildNodes creates the execution nodes for every task in the graph, in
// sorted order.
func buildNodes(g *dag.Graph) ([]*node, error) {
	ids := g.Nodes()
	byID := make(map[string]*node, len(ids))
	nodes := make([]*node, 0, len(ids))
	for _, id := range ids {
		n := &node{id: id}
		byID[id] = n
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		deps, err := g.Dependencies(n.id)
		if err != nil {
			return nil, err
		}
		n.depCount.Store(int32(len(deps)))
		for _, dep := range deps {
			byID[dep].dependents = append(byID[dep].dependents, n)
		}
	}
	return nodes, nil
}
