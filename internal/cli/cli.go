package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/specialistvlad/storeysplit/internal/app"
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

// stringSlice collects a repeatable string flag.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags may appear before or after the input path.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("storeysplit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
storeysplit - Split an IFC building model into one self-contained file per storey.

Usage:
  storeysplit [options] INPUT

Arguments:
  INPUT
    Path to a single .ifc file or a directory searched recursively for .ifc files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var outputDir string
	flagSet.StringVar(&outputDir, "output-dir", "", "Output directory, or s3://bucket/prefix. Defaults to the input's directory.")
	flagSet.StringVar(&outputDir, "o", "", "Output directory (shorthand).")
	var quiet bool
	flagSet.BoolVar(&quiet, "quiet", false, "Suppress progress and summary output.")
	flagSet.BoolVar(&quiet, "q", false, "Suppress progress and summary output (shorthand).")
	logFormatFlag := flagSet.String("log-format", "auto", "Log output format. Options: 'text', 'json' or 'auto'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", runtime.NumCPU(), "Number of storeys processed concurrently.")
	var profiles stringSlice
	flagSet.Var(&profiles, "profile", "Schema profile .hcl file or directory. May be repeated.")
	timeoutFlag := flagSet.Duration("partition-timeout", 0, "Time limit for each storey, e.g. '2m'. 0 is unlimited.")
	keepRelsFlag := flagSet.Bool("keep-relationships", false, "Carry relationship records between written entities into each output.")
	referencedRootsFlag := flagSet.Bool("include-referenced-roots", false, "Also write root entities that written entities reference.")
	reportFlag := flagSet.String("report", "", "Write a YAML run manifest to this path.")
	metricsFlag := flagSet.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path.")

	path, err := parseInterleaved(flagSet, args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "path", path)

	if path == "" {
		slog.Debug("No input path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "text", "json", "auto":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text', 'json' or 'auto'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		InputPath:              path,
		OutputDir:              outputDir,
		Quiet:                  quiet,
		LogFormat:              logFormat,
		LogLevel:               logLevel,
		WorkerCount:            *workersFlag,
		ProfilePaths:           profiles,
		PartitionTimeout:       *timeoutFlag,
		KeepRelationships:      *keepRelsFlag,
		IncludeReferencedRoots: *referencedRootsFlag,
		ReportPath:             *reportFlag,
		MetricsPath:            *metricsFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// parseInterleaved parses flags around a single positional argument, which
// the flag package alone would stop at.
func parseInterleaved(flagSet *flag.FlagSet, args []string) (string, error) {
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}
	if flagSet.NArg() == 0 {
		return "", nil
	}
	path := flagSet.Arg(0)
	if err := flagSet.Parse(flagSet.Args()[1:]); err != nil {
		return "", err
	}
	if flagSet.NArg() > 0 {
		return "", fmt.Errorf("unexpected argument %q: only one INPUT may be given", flagSet.Arg(0))
	}
	return path, nil
}
