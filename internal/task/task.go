package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/registry"
)

var (
	// ErrUnknownTask is returned when a run names a task that was never registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTask is returned when a task name is registered twice.
	ErrDuplicateTask = errors.New("duplicate task")
)

// DestAdapter is the name of the built-in tap step.
const DestAdapter = "dest"

// Task is a registered, immutable task definition with its compiled steps.
type Task struct {
	Name         string
	Description  string
	Sources      []string
	Destinations []string
	DependsOn    []string

	steps []step
	// mu serialises runs of this task.
	mu sync.Mutex
}

type step struct {
	adapter   string
	dir       string
	transform registry.Transform
}

type destOptions struct {
	Dir string `option:"dir"`
}

// Result describes one finished task run.
type Result struct {
	Task  string
	RunID string
	// Written lists the root-relative, slash-separated paths committed.
	Written  []string
	Duration time.Duration
	Err      error
}

// StepError reports which step of which task failed.
type StepError struct {
	Task    string
	Index   int
	Adapter string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("task %q: step %d (%s): %v", e.Task, e.Index, e.Adapter, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
