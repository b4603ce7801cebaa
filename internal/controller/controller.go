// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/matt-FFFFFF/prefbatch/internal/batchspec"
	"github.com/matt-FFFFFF/prefbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/prefbatch/internal/jobcmd"
	"github.com/matt-FFFFFF/prefbatch/internal/jobresult"
	"github.com/matt-FFFFFF/prefbatch/internal/prefs"
	"github.com/matt-FFFFFF/prefbatch/internal/progress"
	"github.com/matt-FFFFFF/prefbatch/internal/render"
	"github.com/matt-FFFFFF/prefbatch/internal/scheduler"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"
)

const (
	logSuffix      = ".log"
	avgSuffix      = "_avgprefs.csv"
	corrPlotSuffix = "_prefscorr.pdf"
)

// ErrCreateArtifact is returned when a summary artifact cannot be written.
var ErrCreateArtifact = errors.New("failed to create summary artifact")

// Controller composes the batch pipeline: CPU-share computation, bounded
// dispatch, the join barrier, result validation, aggregation and whole-batch
// rollback on any failure.
type Controller struct {
	FS        afero.Fs
	Opts      jobcmd.GlobalOptions
	Batch     *batchspec.BatchTable
	Runner    scheduler.Runner
	Renderer  render.Renderer
	LogMirror io.Writer // optional second sink for the run log

	state State
}

// New creates a Controller with the default OS-process runner and the
// external plot-program renderer.
func New(fs afero.Fs, opts jobcmd.GlobalOptions, batch *batchspec.BatchTable) *Controller {
	runner := &scheduler.ProcessRunner{}

	return &Controller{
		FS:        fs,
		Opts:      opts,
		Batch:     batch,
		Runner:    runner,
		Renderer:  &render.CommandRenderer{Program: opts.PlotProgram, Runner: runner},
		LogMirror: os.Stderr,
	}
}

// State returns the pipeline state.
func (c *Controller) State() State {
	return c.state
}

// LogPath is the run log artifact, always produced and never rolled back.
func (c *Controller) LogPath() string {
	return c.summaryPath(logSuffix)
}

// AvgPath is the average-preferences table artifact.
func (c *Controller) AvgPath() string {
	return c.summaryPath(avgSuffix)
}

// CorrPlotPath is the correlation heatmap artifact.
func (c *Controller) CorrPlotPath() string {
	return c.summaryPath(corrPlotSuffix)
}

func (c *Controller) summaryPath(suffix string) string {
	return filepath.Join(c.Opts.OutDir, c.Opts.SummaryPrefix+suffix)
}

// Run executes the whole batch. On any failure every non-log artifact
// produced by this run is deleted, the error is logged to the run log, and
// the run log itself is finalized and preserved.
func (c *Controller) Run(ctx context.Context) error {
	c.state = StateInit

	if c.Opts.UseExisting && c.summaryArtifactsExist() {
		ctxlog.Info(ctx, "all summary artifacts already exist, nothing to do",
			"prefix", c.summaryPath(""))

		c.state = StateCommitted

		return nil
	}

	if err := c.FS.MkdirAll(c.Opts.OutDir, 0o755); err != nil {
		c.state = StateFailed

		return errors.Join(ErrCreateArtifact, err)
	}

	logFile, err := c.FS.Create(c.LogPath())
	if err != nil {
		c.state = StateFailed

		return errors.Join(ErrCreateArtifact, err)
	}

	// The run log is finalized on every exit path and never rolled back.
	defer logFile.Close() //nolint:errcheck

	var sink io.Writer = logFile
	if c.LogMirror != nil {
		sink = io.MultiWriter(logFile, c.LogMirror)
	}

	ctx = ctxlog.New(ctx, slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	if err := c.pipeline(ctx); err != nil {
		c.rollback(ctx, err)

		return err
	}

	c.transition(ctx, StateCommitted)
	ctxlog.Info(ctx, "batch committed",
		"samples", len(c.Batch.Samples),
		"log", c.LogPath())

	return nil
}

func (c *Controller) pipeline(ctx context.Context) error {
	c.transition(ctx, StateValidating)

	totalCPUs, err := scheduler.ResolveCPUs(c.Opts.NCPUs)
	if err != nil {
		return err //nolint:wrapcheck
	}

	share := scheduler.CPUShare(totalCPUs, len(c.Batch.Samples))
	ctxlog.Info(ctx, "resolved CPU budget",
		"total", totalCPUs,
		"perJobShare", share,
		"samples", len(c.Batch.Samples))

	jobs := make([]scheduler.Job, len(c.Batch.Samples))
	for i, s := range c.Batch.Samples {
		jobs[i] = scheduler.Job{
			Sample:     s.Name,
			Path:       c.Opts.Program,
			Args:       jobcmd.BuildArgs(s, c.Batch.ErrorModel, c.Opts, share),
			CPUShare:   share,
			OutputPath: jobresult.OutputPath(c.Opts.OutDir, s.Name),
			LogPath:    jobresult.LogPath(c.Opts.OutDir, s.Name),
		}
	}

	c.transition(ctx, StateDispatching)

	reporter := progress.NewChannelReporter(ctx, len(jobs)*4)
	reporter.Listen(&logListener{ctx: ctx})

	pool := &scheduler.Pool{Width: totalCPUs, Runner: c.Runner, Reporter: reporter}

	c.transition(ctx, StateAwaitingBarrier)

	results := pool.Run(ctx, jobs)
	reporter.Close()

	c.transition(ctx, StateValidatingResults)

	tables, err := jobresult.Validate(ctx, c.FS, results)
	if err != nil {
		return err //nolint:wrapcheck
	}

	c.transition(ctx, StateAggregating)

	return c.aggregate(ctx, tables)
}

func (c *Controller) aggregate(ctx context.Context, tables []jobresult.SampleTable) error {
	samples := make([]prefs.Sample, len(tables))
	names := make([]string, len(tables))
	paths := make([]string, len(tables))

	for i, t := range tables {
		samples[i] = prefs.Sample{Name: t.Name, Path: t.Path}
		names[i] = t.Name
		paths[i] = t.Path
	}

	if !c.Opts.NoAvg {
		avg, err := prefs.Average(c.FS, samples)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if err := avg.WriteCSV(c.FS, c.AvgPath()); err != nil {
			return errors.Join(ErrCreateArtifact, err)
		}

		ctxlog.Info(ctx, "wrote average preferences", "path", c.AvgPath())
	}

	if !c.Opts.NoCorr {
		m, err := prefs.CorrMatrix(c.FS, samples)
		if err != nil {
			return err //nolint:wrapcheck
		}

		ctxlog.Info(ctx, "computed correlation matrix",
			"samples", names,
			"matrix", fmt.Sprintf("%.4f", mat.Formatted(m)))

		// Rendering failures are surfaced but do not invalidate the numbers.
		if err := c.Renderer.CorrPlot(ctx, names, paths,
			c.CorrPlotPath(), render.DatatypePrefs); err != nil {
			ctxlog.Error(ctx, "correlation plot rendering failed", "error", err)
		} else {
			ctxlog.Info(ctx, "wrote correlation plot", "path", c.CorrPlotPath())
		}
	}

	return nil
}

// rollback deletes every summary artifact this run may have produced except
// the log, which is always preserved.
func (c *Controller) rollback(ctx context.Context, cause error) {
	ctxlog.Error(ctx, "batch failed", "state", c.state.String(), "error", cause)

	c.transition(ctx, StateRollingBack)

	for _, path := range []string{c.AvgPath(), c.CorrPlotPath()} {
		ok, err := afero.Exists(c.FS, path)
		if err != nil || !ok {
			continue
		}

		if err := c.FS.Remove(path); err != nil {
			ctxlog.Error(ctx, "failed to remove artifact", "path", path, "error", err)
			continue
		}

		ctxlog.Info(ctx, "removed artifact", "path", path)
	}

	c.state = StateFailed
}

// summaryArtifactsExist reports whether every currently-enabled summary
// artifact is already present. With every artifact suppressed there is
// nothing left to produce, so the check is vacuously satisfied and a
// use-existing run dispatches nothing.
func (c *Controller) summaryArtifactsExist() bool {
	enabled := []string{}

	if !c.Opts.NoAvg {
		enabled = append(enabled, c.AvgPath())
	}

	if !c.Opts.NoCorr {
		enabled = append(enabled, c.CorrPlotPath())
	}

	for _, path := range enabled {
		ok, err := afero.Exists(c.FS, path)
		if err != nil || !ok {
			return false
		}
	}

	return true
}

func (c *Controller) transition(ctx context.Context, next State) {
	ctxlog.Debug(ctx, "state transition", "from", c.state.String(), "to", next.String())
	c.state = next
}

// logListener forwards pool progress events to the run log.
type logListener struct {
	ctx context.Context
}

// OnEvent implements the progress.Listener interface for logListener.
func (l *logListener) OnEvent(event progress.Event) {
	switch event.Type {
	case progress.EventFailed:
		ctxlog.Warn(l.ctx, "job "+event.Type.String(),
			"sample", event.Sample,
			"exitCode", event.Data.ExitCode,
			"error", event.Data.Error)
	default:
		ctxlog.Info(l.ctx, "job "+event.Type.String(), "sample", event.Sample)
	}
}
