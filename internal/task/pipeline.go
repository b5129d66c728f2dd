package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/vk/assetgrid/internal/asset"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
)

// pendingWrite is an output recorded during a run and committed at its end.
type pendingWrite struct {
	target string
	data   []byte
}

// execute interprets the task's pipeline and commits its outputs.
func (g *Graph) execute(ctx context.Context, t *Task) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := g.read(t)
	if err != nil {
		return nil, fmt.Errorf("task %q: read sources: %w", t.Name, err)
	}
	if len(files) == 0 {
		logger.Warn("No source files matched.", "sources", t.Sources)
	}
	logger.Debug("Sources loaded.", "files", len(files))

	var pending []pendingWrite
	for i, s := range t.steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Name, err)
		}
		if s.adapter == DestAdapter {
			pending = tap(pending, files, s.dir)
			continue
		}

		out, err := s.transform(ctx, files)
		if err != nil {
			return nil, &StepError{Task: t.Name, Index: i + 1, Adapter: s.adapter, Err: err}
		}
		logger.Debug("Step finished.", "step", i+1, "adapter", s.adapter, "files", len(out))
		files = out
	}
	for _, dir := range t.Destinations {
		pending = tap(pending, files, dir)
	}

	return g.commit(ctx, pending)
}

// read expands the task's sources and loads them into memory.
func (g *Graph) read(t *Task) ([]*asset.File, error) {
	matches, err := fsutil.Expand(g.root, t.Sources)
	if err != nil {
		return nil, err
	}

	files := make([]*asset.File, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(filepath.Join(g.root, filepath.FromSlash(m.Source())))
		if err != nil {
			return nil, err
		}
		files = append(files, asset.New(m.Base, m.Path, b))
	}
	return files, nil
}

// tap records a write of every file in the stream under dir.
func tap(pending []pendingWrite, files []*asset.File, dir string) []pendingWrite {
	for _, f := range files {
		pending = append(pending, pendingWrite{
			target: path.Join(filepath.ToSlash(dir), f.Path),
			data:   f.Contents,
		})
	}
	return pending
}

// commit writes every pending output and returns the root-relative paths
// written. All outputs are staged next to their targets first, so a failed
// write leaves every target untouched. Each target is then replaced
// atomically.
func (g *Graph) commit(ctx context.Context, pending []pendingWrite) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	staged := make([]string, 0, len(pending))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}()
	for _, w := range pending {
		tmp, err := stage(filepath.Join(g.root, filepath.FromSlash(w.target)), w.data)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", w.target, err)
		}
		staged = append(staged, tmp)
	}

	written := make([]string, 0, len(pending))
	for i, w := range pending {
		target := filepath.Join(g.root, filepath.FromSlash(w.target))
		if err := atomic.ReplaceFile(staged[i], target); err != nil {
			return written, fmt.Errorf("replace %s: %w", w.target, err)
		}
		staged[i] = ""
		logger.Debug("Output written.", "path", w.target, "bytes", len(w.data))
		written = append(written, w.target)
	}
	return written, nil
}

// stage writes data to a temporary file in the target's directory and
// returns its path. The file takes the target's mode, or 0644 for a new
// target.
func stage(target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", target)
		}
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	_, err = io.Copy(f, bytes.NewReader(data))
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, mode)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
