package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/romdo/go-debounce"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/metrics"
)

const (
	// DefaultDebounce is the quiet period that ends a burst of events.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultMaxWait bounds how long a continuous burst can delay a batch.
	DefaultMaxWait = time.Second
	// DefaultPollInterval is used by the polling source.
	DefaultPollInterval = 250 * time.Millisecond
)

// DefaultSkipDirs are root-relative directories that are never watched.
var DefaultSkipDirs = []string{".git", "node_modules"}

// ErrAlreadyRunning is returned by Run when the scheduler is already running.
var ErrAlreadyRunning = errors.New("scheduler is already running")

// Runner re-runs changed tasks together with every task that depends on
// them. It is implemented by the executor.
type Runner interface {
	Rebuild(ctx context.Context, names ...string) (*executor.Report, error)
}

// Notifier receives the outcome of a batch. It is implemented by the dev
// server.
type Notifier interface {
	Reload(kind config.ReloadKind, paths []string)
	BuildError(task string, err error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce sets the debounce window and the maximum delay of a batch.
func WithDebounce(wait, maxWait time.Duration) Option {
	return func(s *Scheduler) {
		s.wait = wait
		s.maxWait = maxWait
	}
}

// WithPolling switches from OS notifications to polling the tree at the
// given interval.
func WithPolling(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.poll = interval
	}
}

// WithSkipDirs adds root-relative directories that are never watched.
// Directories with the same name deeper in the tree are still watched.
func WithSkipDirs(dirs ...string) Option {
	return func(s *Scheduler) {
		s.skipDirs = append(s.skipDirs, dirs...)
	}
}

// WithSource replaces the file system source.
func WithSource(src Source) Option {
	return func(s *Scheduler) {
		s.source = src
	}
}

// Scheduler maps file changes to task re-runs and browser reloads.
type Scheduler struct {
	root     string
	runner   Runner
	notifier Notifier

	wait     time.Duration
	maxWait  time.Duration
	poll     time.Duration
	skipDirs []string
	source   Source

	mu      sync.Mutex
	watches []config.Watch
	pending map[string]struct{}
	running bool
	ready   chan struct{}
}

// New creates a scheduler for the project rooted at root.
func New(root string, runner Runner, notifier Notifier, opts ...Option) *Scheduler {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	s := &Scheduler{
		root:     root,
		runner:   runner,
		notifier: notifier,
		wait:     DefaultDebounce,
		maxWait:  DefaultMaxWait,
		skipDirs: append([]string(nil), DefaultSkipDirs...),
		pending:  make(map[string]struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch registers a binding. Bindings may be added before or while the
// scheduler runs.
func (s *Scheduler) Watch(w config.Watch) error {
	if len(w.Globs) == 0 {
		return fmt.Errorf("watch %q: no globs", w.Name)
	}
	if w.Reload == "" {
		w.Reload = config.ReloadFull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = append(s.watches, w)
	return nil
}

// Ready is closed once the file system watches of the current or next run
// are in place.
func (s *Scheduler) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Run starts the event loop and blocks until ctx is cancelled. A batch in
// progress is allowed to finish before Run returns. A stopped scheduler
// can be run again.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	ready := s.ready
	s.mu.Unlock()

	started := false
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		if started {
			s.ready = make(chan struct{})
		}
	}()

	src, err := s.openSource()
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("Failed to close file watcher.", "error", err)
		}
	}()

	trigger := make(chan struct{}, 1)
	debounced, cancel := debounce.NewWithMaxWait(s.wait, s.maxWait, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	batchDone := make(chan struct{})
	go func() {
		defer close(batchDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				s.flush(ctx)
			}
		}
	}()

	started = true
	close(ready)
	logger.Info("👀 Watching for changes.", "root", s.root, "bindings", len(s.snapshot()))

	events, errs := src.Events(), src.Errors()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-batchDone
			logger.Debug("Watch scheduler stopped.")
			return nil
		case path := <-events:
			if s.enqueue(path) {
				debounced()
			}
		case err := <-errs:
			logger.Warn("Watcher error.", "error", err)
		}
	}
}

func (s *Scheduler) openSource() (Source, error) {
	if s.source != nil {
		return s.source, nil
	}
	if s.poll > 0 {
		return newPollSource(s.root, s.skipDirs, s.poll)
	}
	return newNativeSource(s.root, s.skipDirs)
}

func (s *Scheduler) snapshot() []config.Watch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]config.Watch(nil), s.watches...)
}

// enqueue records a changed path if some binding matches it.
func (s *Scheduler) enqueue(abs string) bool {
	rel, ok := s.relative(abs)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watches {
		if matches(w, rel) {
			s.pending[rel] = struct{}{}
			metrics.WatchEvents.Inc()
			return true
		}
	}
	return false
}

func (s *Scheduler) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func matches(w config.Watch, rel string) bool {
	return fsutil.MatchAny(w.Globs, rel) && !fsutil.MatchAny(w.Ignore, rel)
}

// flush drains the pending paths and handles them as one batch.
func (s *Scheduler) flush(ctx context.Context) {
	s.mu.Lock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	clear(s.pending)
	watches := append([]config.Watch(nil), s.watches...)
	s.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	s.runBatch(ctx, watches, paths)
}

// runBatch re-runs every task bound to the changed paths once, together
// with their dependents, then notifies. The reload kind is the strongest one
// among the matched bindings whose tasks all succeeded.
func (s *Scheduler) runBatch(ctx context.Context, watches []config.Watch, paths []string) {
	logger := ctxlog.FromContext(ctx)

	var matched []config.Watch
	taskSet := make(map[string]struct{})
	for _, w := range watches {
		for _, p := range paths {
			if matches(w, p) {
				matched = append(matched, w)
				for _, t := range w.Tasks {
					taskSet[t] = struct{}{}
				}
				break
			}
		}
	}
	if len(matched) == 0 {
		return
	}

	names := make([]string, 0, len(taskSet))
	for name := range taskSet {
		names = append(names, name)
	}
	sort.Strings(names)
	logger.Info("🔄 Change detected.", "paths", paths, "tasks", names)

	report, err := s.runner.Rebuild(ctx, names...)
	if report == nil {
		logger.Error("❌ Rebuild could not start.", "error", err)
		for _, name := range names {
			s.notifier.BuildError(name, err)
		}
		return
	}
	for _, name := range report.In(executor.Failed) {
		s.notifier.BuildError(name, taskError(report, name))
	}
	if skipped := report.In(executor.Skipped); len(skipped) > 0 {
		logger.Warn("⚠️ Dependent tasks skipped.", "tasks", skipped)
	}

	kind := config.ReloadNone
	for _, w := range matched {
		if !allDone(w.Tasks, report) {
			continue
		}
		if w.Reload.Stronger(kind) {
			kind = w.Reload
		}
	}
	if kind == config.ReloadNone {
		return
	}
	metrics.Reloads.WithLabelValues(string(kind)).Inc()
	logger.Debug("Pushing reload.", "kind", kind)
	s.notifier.Reload(kind, paths)
}

// taskError returns the error a failed task run ended with.
func taskError(report *executor.Report, name string) error {
	if res, ok := report.Results[name]; ok && res != nil && res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("task %q failed", name)
}

func allDone(tasks []string, report *executor.Report) bool {
	for _, t := range tasks {
		if report.States[t] != executor.Done {
			return false
		}
	}
	return true
}
