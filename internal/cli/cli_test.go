package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
)

func TestParse_Defaults(t *testing.T) {
	// --- Act ---
	cfg, exit, err := Parse(nil, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, app.ModeDev, cfg.Mode)
	assert.Nil(t, cfg.Port, "port comes from the pipeline unless set")
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Positive(t, cfg.Workers)
}

func TestParse_FlagsAndCommand(t *testing.T) {
	// --- Act ---
	cfg, exit, err := Parse([]string{
		"-root", "site", "-config", "pipeline.hcl", "-host", "0.0.0.0", "-port", "0",
		"-workers", "2", "-poll", "500ms", "-log-format", "JSON", "-log-level", "debug",
		"build",
	}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "site", cfg.Root)
	assert.Equal(t, "pipeline.hcl", cfg.ConfigPath)
	assert.Equal(t, app.ModeBuild, cfg.Mode)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	require.NotNil(t, cfg.Port)
	assert.Equal(t, 0, *cfg.Port)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_Environment(t *testing.T) {
	// --- Arrange ---
	t.Setenv("ASSETGRID_LOG_LEVEL", "warn")
	t.Setenv("ASSETGRID_WORKERS", "3")

	// --- Act ---
	cfg, _, err := Parse([]string{"-workers", "5"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Workers, "flags win over the environment")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "unknown command", args: []string{"serve"}},
		{name: "too many commands", args: []string{"dev", "build"}},
		{name: "bad log format", args: []string{"-log-format", "xml"}},
		{name: "bad log level", args: []string{"-log-level", "loud"}},
		{name: "no workers", args: []string{"-workers", "0"}},
		{name: "port out of range", args: []string{"-port", "70000"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})

			require.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}

	cfg, exit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "ASSETGRID_")
}

func TestLoadDotEnv(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ASSETGRID_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("ASSETGRID_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("ASSETGRID_TEST_DOTENV"))

	// --- Act & Assert ---
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("ASSETGRID_TEST_DOTENV"))
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")), "a missing file is not an error")
}
