package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vk/contentgrid/internal/app"
)

// Environment variables supplying flag defaults.
const (
	EnvLogLevel = "CONTENTGRID_LOG_LEVEL"
	EnvWorkers  = "CONTENTGRID_WORKERS"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. getenv supplies defaults for the
// log level and worker count. It returns a populated Config, a boolean
// indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer, getenv func(string) string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("contentgrid", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, `
ContentGrid - builds game content into runtime-ready files.

Usage:
  contentgrid [options] [PROJECT_FILE | SOURCE_DIR]

Arguments:
  PROJECT_FILE
    Path to a project .hcl file describing the build.
  SOURCE_DIR
    Directory whose importable files are built with default settings.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaultLevel := "info"
	if v := getenv(EnvLogLevel); v != "" {
		defaultLevel = strings.ToLower(v)
	}
	defaultWorkers := runtime.NumCPU()
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, false, usageError("invalid %s: %q is not a number", EnvWorkers, v)
		}
		defaultWorkers = n
	}

	projectFlag := flagSet.StringP("project", "p", "", "Path to the project file.")
	sourceFlag := flagSet.StringP("source-root", "s", "", "Directory holding the source content. Overrides the project file.")
	intermediateFlag := flagSet.String("intermediate-dir", "", "Directory for build records and statistics. Overrides the project file.")
	outputFlag := flagSet.StringP("output-dir", "o", "", "Directory for built content. Overrides the project file.")
	compressionFlag := flagSet.StringP("compression", "c", "", "Output compression: 'none', 'lz4' or 'zstd'. Overrides the project file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaultLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.IntP("workers", "w", defaultWorkers, "Number of assets built concurrently.")
	rebuildFlag := flagSet.Bool("rebuild", false, "Ignore build records and rebuild everything.")
	cleanFlag := flagSet.Bool("clean", false, "Remove built content and build records instead of building.")
	listFlag := flagSet.Bool("list", false, "List the available importers and processors and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	projectPath, sourceRoot := *projectFlag, *sourceFlag
	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected at most one path argument, got %d", flagSet.NArg())
	}
	if flagSet.NArg() == 1 {
		arg := flagSet.Arg(0)
		switch {
		case strings.EqualFold(filepath.Ext(arg), ".hcl") && projectPath == "":
			projectPath = arg
		case sourceRoot == "":
			sourceRoot = arg
		default:
			return nil, false, usageError("path %q conflicts with --project/--source-root", arg)
		}
	}
	slog.Debug("Input paths determined.", "project", projectPath, "source_root", sourceRoot)

	if projectPath == "" && sourceRoot == "" && !*listFlag {
		slog.Debug("No input provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ProjectPath:     projectPath,
		SourceRoot:      sourceRoot,
		IntermediateDir: *intermediateFlag,
		OutputDir:       *outputFlag,
		Compression:     strings.ToLower(*compressionFlag),
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		Rebuild:         *rebuildFlag,
		Clean:           *cleanFlag,
		ListComponents:  *listFlag,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
