package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/fsutil"
	"github.com/specialistvlad/storeysplit/internal/metrics"
	"github.com/specialistvlad/storeysplit/internal/orchestrator"
	"github.com/specialistvlad/storeysplit/internal/report"
	"github.com/specialistvlad/storeysplit/internal/schema"
	"github.com/specialistvlad/storeysplit/internal/sink"
	"github.com/specialistvlad/storeysplit/internal/step"
)

// ErrAllPartitionsFailed is returned when an input had containers but none of
// its partitions could be written.
var ErrAllPartitionsFailed = errors.New("no partition was written")

const inputExtension = ".ifc"

// Run executes the main application logic based on the provided configuration.
// Every input file is split independently; an error for one file does not stop
// the others unless ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	inputs, err := a.inputs()
	if err != nil {
		return err
	}
	a.logger.Debug("Inputs discovered.", "count", len(inputs))

	var rec *metrics.Recorder
	if a.config.MetricsPath != "" {
		rec = metrics.NewRecorder()
	}

	var errs []error
	for _, in := range inputs {
		if err := a.split(ctx, in, len(inputs) > 1, rec); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	if rec != nil {
		if err := rec.WriteTextfile(a.config.MetricsPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		} else {
			a.logger.Debug("Metrics written.", "path", a.config.MetricsPath)
		}
	}

	a.logger.Debug("App.Run method finished.", "failed_inputs", len(errs))
	return errors.Join(errs...)
}

// split loads one input and writes one artifact per container.
func (a *App) split(ctx context.Context, in string, multi bool, rec *metrics.Recorder) error {
	ctx, logger := ctxlog.With(ctx, "input", in)

	doc, err := step.Load(ctx, in, step.Options{
		Namer: func(schemaID string) step.Namer { return a.catalog.ForSchema(schemaID) },
	})
	if err != nil {
		return err
	}
	profile := a.catalog.ForSchema(doc.Header.Schema())
	logger.Info("Input loaded.",
		"schema", doc.Header.Schema(),
		"profile", profile.Name,
		"entities", doc.Store.Len(),
		"bytes", doc.Size,
	)

	out, err := a.sinkFor(ctx, in)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(a.outW, a.config.Quiet, containerCount(doc, profile))
	observers := []orchestrator.Observer{printer}
	if rec != nil {
		observers = append(observers, rec)
	}

	orc := orchestrator.New(doc.Store, profile, out, orchestrator.Config{
		Workers:                a.config.WorkerCount,
		PartitionTimeout:       a.config.PartitionTimeout,
		KeepRelationships:      a.config.KeepRelationships,
		IncludeReferencedRoots: a.config.IncludeReferencedRoots,
		Stem:                   fsutil.Stem(in),
		Source:                 in,
		Header:                 doc.Header,
		OriginalSize:           doc.Size,
	}, observers...)

	summary, runErr := orc.Run(ctx)
	if summary != nil {
		printer.Summary(summary)
		if rec != nil {
			rec.RunDone(summary)
		}
		if a.config.ReportPath != "" {
			path := reportPath(a.config.ReportPath, fsutil.Stem(in), multi)
			if err := report.NewManifest(summary).WriteFile(path); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			logger.Debug("Report written.", "path", path)
		}
	}
	if runErr != nil {
		return runErr
	}
	if summary.Succeeded == 0 {
		return fmt.Errorf("%s: %w (%d failed)", in, ErrAllPartitionsFailed, summary.Failed)
	}
	return nil
}

// inputs lists the files to split. A directory is searched recursively.
func (a *App) inputs() ([]string, error) {
	path := a.config.InputPath
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, inputExtension)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", inputExtension, path)
	}
	return files, nil
}

// sinkFor picks where the artifacts of in are written: next to the input by
// default, into OutputDir, or into a bucket for s3:// targets.
func (a *App) sinkFor(ctx context.Context, in string) (sink.Sink, error) {
	target := a.config.OutputDir
	if target == "" {
		return sink.NewLocalDir(filepath.Dir(in))
	}
	bucket, prefix, ok := sink.ParseS3URL(target)
	if !ok {
		return sink.NewLocalDir(target)
	}
	if a.s3Client == nil {
		client, err := sink.NewS3Client(ctx, a.s3)
		if err != nil {
			return nil, err
		}
		a.s3Client = client
	}
	return sink.NewS3(a.s3Client, bucket, prefix, ""), nil
}

func containerCount(doc *step.Document, profile *schema.Profile) int {
	n := 0
	for _, typ := range profile.ContainerTypes {
		n += len(doc.Store.OfType(typ))
	}
	return n
}

// reportPath gives every input its own manifest when several are split.
func reportPath(base, stem string, multi bool) string {
	if !multi {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + stem + ext
}
