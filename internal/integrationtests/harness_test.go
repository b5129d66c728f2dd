package integration_tests

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/testutil"
)

// runResult is what a pipeline run left behind.
type runResult struct {
	App  *app.App
	Root string
	Err  error
	Logs *testutil.SafeBuffer
}

// runBuild writes files into a fresh project root and runs the build
// composition over it.
func runBuild(t *testing.T, files map[string]string) *runResult {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, files)

	logs := &testutil.SafeBuffer{}
	cfg, err := app.NewConfig(app.Config{
		Root:      root,
		Mode:      app.ModeBuild,
		Workers:   4,
		LogFormat: "json",
		LogLevel:  "debug",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	a, err := app.NewApp(logs, cfg, hcl.NewLoader())
	if err != nil {
		return &runResult{Root: root, Err: err, Logs: logs}
	}
	ctx, _ := testutil.Context(t)
	return &runResult{App: a, Root: root, Err: a.Run(ctx), Logs: logs}
}
