package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// Context returns a context carrying a debug-level text logger that writes
// into the returned buffer. The context is cancelled when the test ends.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))
	t.Cleanup(cancel)
	return ctx, buf
}
