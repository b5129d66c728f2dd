package app

import (
	"context"
	"fmt"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
)

// Dev runs the development composition: it builds the dev tasks once,
// starts the dev server and then re-runs tasks on file changes until ctx is
// cancelled. A failed startup task does not prevent serving.
func (a *App) Dev(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	if len(a.model.Dev.Tasks) > 0 {
		logger.Info("🚀 Running dev tasks...", "tasks", a.model.Dev.Tasks)
		report, err := a.executor.Run(ctx, a.model.Dev.Tasks...)
		if err != nil {
			if report == nil {
				return fmt.Errorf("dev tasks: %w", err)
			}
			logger.Warn("⚠️ Some dev tasks failed, serving stale output.",
				"failed", report.In(executor.Failed),
				"skipped", report.In(executor.Skipped),
				"error", err)
		} else {
			logger.Info("🏁 Dev tasks finished.")
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dev server: %w", err)
	}
	defer func() {
		if err := a.server.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Dev server did not stop cleanly.", "error", err)
		}
	}()

	if err := a.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("watch scheduler: %w", err)
	}
	logger.Info("👋 Dev session finished.")
	return nil
}
