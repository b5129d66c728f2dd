package executor

import (
	"context"
	"fmt"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, readyChan chan *node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "task", n.id)

		if err := ctx.Err(); err != nil {
			n.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping task.")
				n.state.Store(int32(Skipped))
				n.err = err
				r.wg.Done()
			})
			r.skipDependents(ctx, n)
			continue
		}

		workerLogger.Debug("Worker picked up task.")
		n.state.Store(int32(Running))
		res, err := r.runner.Run(ctx, n.id)
		n.result = res

		if err != nil {
			n.state.Store(int32(Failed))
			n.err = err
			r.skipDependents(ctx, n)
			r.wg.Done()
			continue
		}

		n.state.Store(int32(Done))
		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent task.", "dependent", dependent.id)
				readyChan <- dependent
			}
		}
		r.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream tasks as skipped and
// decrements the WaitGroup for each.
func (r *run) skipDependents(ctx context.Context, n *node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping task due to upstream failure.", "task", dependent.id, "dependency", n.id)
			dependent.state.Store(int32(Skipped))
			dependent.err = fmt.Errorf("skipped due to upstream failure of %q", n.id)
			r.wg.Done()
			r.skipDependents(ctx, dependent)
		})
	}
}
