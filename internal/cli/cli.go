package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"runtime"
	"strings"

	"github.com/facebookgo/flagenv"
	"github.com/joho/godotenv"
	"github.com/vk/assetgrid/internal/app"
)

// EnvPrefix prefixes the environment variable of every flag, so -log-level
// can be set with ASSETGRID_LOG_LEVEL.
const EnvPrefix = "ASSETGRID_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// LoadDotEnv loads environment variables from path when the file exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assetgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
assetgrid - builds, serves and live-reloads static site assets.

Usage:
  assetgrid [options] [dev|build]

Commands:
  dev     Build the dev tasks, serve the site and rebuild on change (default).
  build   Produce the release in the distribution directory.

Every option can also be set with an ASSETGRID_<OPTION> environment
variable (for example ASSETGRID_LOG_LEVEL=debug) or in a .env file.

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.String("root", ".", "Project root directory.")
	configFlag := flagSet.String("config", "", "Pipeline file or directory. Defaults to the .hcl files in the project root.")
	hostFlag := flagSet.String("host", "", "Dev server host. Overrides the pipeline's server block.")
	portFlag := flagSet.Int("port", -1, "Dev server port, 0 picks a free one. Overrides the pipeline's server block.")
	workersFlag := flagSet.Int("workers", runtime.NumCPU(), "Number of tasks run concurrently.")
	pollFlag := flagSet.Duration("poll", 0, "Poll the file system at this interval instead of using OS notifications.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagenv.ParseSet(EnvPrefix, flagSet); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	mode := app.ModeDev
	switch flagSet.NArg() {
	case 0:
	case 1:
		mode = flagSet.Arg(0)
		if mode != app.ModeDev && mode != app.ModeBuild {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q: must be 'dev' or 'build'", mode)}
		}
	default:
		return nil, false, &ExitError{Code: 2, Message: "too many arguments: expected at most one command"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var port *int
	if *portFlag >= 0 {
		port = portFlag
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Root:       *rootFlag,
		ConfigPath: *configFlag,
		Mode:       mode,
		Host:       *hostFlag,
		Port:       port,
		Workers:    *workersFlag,
		Poll:       *pollFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
