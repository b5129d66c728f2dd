package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/fsutil"
	"golang.org/x/sync/errgroup"
)

const (
	lockRetryDelay = 100 * time.Millisecond
	// maxRelocations bounds how many relocations copy at once.
	maxRelocations = 4
)

// Release runs the release composition. It holds a file lock for its whole
// duration, runs the prebuild tasks, wipes and recreates the distribution
// directory, then relocates built files and runs the release tasks
// concurrently. Nothing is copied when the wipe fails.
func (a *App) Release(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	rel := a.model.Release
	start := time.Now()

	lock := flock.New(filepath.Join(a.root, rel.LockFile))
	logger.Debug("Acquiring release lock.", "path", lock.Path())
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to acquire release lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release lock.", "error", err)
		}
	}()

	if len(rel.Prebuild) > 0 {
		logger.Info("🚀 Running prebuild tasks...", "tasks", rel.Prebuild)
		if _, err := a.executor.Run(ctx, rel.Prebuild...); err != nil {
			return fmt.Errorf("prebuild failed: %w", err)
		}
	}

	dist := filepath.Join(a.root, filepath.FromSlash(rel.Dist))
	logger.Info("🧹 Cleaning distribution directory.", "path", rel.Dist)
	if err := a.removeAll(dist); err != nil {
		return fmt.Errorf("failed to clean %s: %w", rel.Dist, err)
	}
	if err := os.MkdirAll(dist, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", rel.Dist, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRelocations + 1)
	if len(rel.Tasks) > 0 {
		g.Go(func() error {
			report, err := a.executor.Run(gctx, rel.Tasks...)
			if err != nil {
				if report != nil {
					logger.Error("❌ Release tasks failed.", "failed", report.In(executor.Failed))
				}
				return fmt.Errorf("release tasks: %w", err)
			}
			return nil
		})
	}
	for _, r := range rel.Relocate {
		g.Go(func() error {
			n, err := fsutil.Relocate(gctx, a.root, r.Sources, r.Dest)
			if err != nil {
				return fmt.Errorf("relocate %q: %w", r.Name, err)
			}
			logger.Debug("Relocated files.", "relocation", r.Name, "files", n, "dest", r.Dest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("❌ Release failed.", "error", err)
		return err
	}

	logger.Info("📦 Release finished.", "dist", rel.Dist, "duration", time.Since(start))
	return nil
}
