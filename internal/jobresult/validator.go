// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobresult

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/prefbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/prefbatch/internal/scheduler"
	"github.com/spf13/afero"
)

const (
	outputSuffix = "_prefs.csv"
	logSuffix    = ".log"
	// logTailLines is how much of a failed job's own log is surfaced.
	logTailLines = 25
)

var (
	// ErrJobFailed is returned when a job's expected output artifact is missing.
	ErrJobFailed = errors.New("external job failed")
	// ErrInvariant is returned when a job left neither its output nor its log.
	// The external program contract guarantees one of the two, so this
	// indicates the program or the filesystem misbehaved.
	ErrInvariant = errors.New("job produced neither its expected output nor its log")
)

// OutputPath is the deterministic per-sample output artifact location.
func OutputPath(outDir, sample string) string {
	return filepath.Join(outDir, sample+outputSuffix)
}

// LogPath is the deterministic per-sample diagnostic log location.
func LogPath(outDir, sample string) string {
	return filepath.Join(outDir, sample+logSuffix)
}

// JobFailureError carries the diagnostic context for one failed job: the
// sample, the artifact it should have produced, and the tail of its own log.
type JobFailureError struct {
	Sample       string
	ExpectedPath string
	LogTail      []string
}

// Error implements the error interface for JobFailureError.
func (e *JobFailureError) Error() string {
	return fmt.Sprintf("%s: sample %q did not produce %s; last lines of its log:\n%s",
		ErrJobFailed.Error(), e.Sample, e.ExpectedPath, strings.Join(e.LogTail, "\n"))
}

// Unwrap makes JobFailureError match ErrJobFailed with errors.Is.
func (e *JobFailureError) Unwrap() error {
	return ErrJobFailed
}

// SampleTable pairs a validated sample with its preference table artifact.
type SampleTable struct {
	Name string
	Path string
}

// Validate confirms every completed job produced its expected output
// artifact. Each sample is checked independently; all failures are collected
// before returning so the log names every failed sample, and any failure is
// fatal to the whole batch.
func Validate(ctx context.Context, fs afero.Fs, results []scheduler.JobResult) ([]SampleTable, error) {
	logger := ctxlog.Logger(ctx)

	tables := make([]SampleTable, 0, len(results))

	var merr *multierror.Error

	for _, res := range results {
		if res.Err != nil {
			logger.Error("job could not be run", "sample", res.Sample, "error", res.Err)
			merr = multierror.Append(merr,
				fmt.Errorf("%w: sample %q could not be run: %w", ErrJobFailed, res.Sample, res.Err))

			continue
		}

		ok, err := afero.Exists(fs, res.OutputPath)
		if err != nil {
			merr = multierror.Append(merr, errors.Join(ErrJobFailed, err))
			continue
		}

		if ok {
			logger.Debug("job output present", "sample", res.Sample, "path", res.OutputPath)
			tables = append(tables, SampleTable{Name: res.Sample, Path: res.OutputPath})

			continue
		}

		failure, err := diagnose(fs, res)
		if err != nil {
			logger.Error("job violated its output contract", "sample", res.Sample, "error", err)
			merr = multierror.Append(merr, err)

			continue
		}

		logger.Error("job failed",
			"sample", res.Sample,
			"expected", res.OutputPath,
			"logTail", strings.Join(failure.LogTail, "\n"))
		merr = multierror.Append(merr, failure)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return tables, nil
}

// diagnose extracts the log tail for a job whose output is missing.
func diagnose(fs afero.Fs, res scheduler.JobResult) (*JobFailureError, error) {
	ok, err := afero.Exists(fs, res.LogPath)
	if err != nil {
		return nil, errors.Join(ErrInvariant, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: sample %q, expected %s or %s",
			ErrInvariant, res.Sample, res.OutputPath, res.LogPath)
	}

	tail, err := TailLines(fs, res.LogPath, logTailLines)
	if err != nil {
		return nil, errors.Join(ErrInvariant, err)
	}

	return &JobFailureError{
		Sample:       res.Sample,
		ExpectedPath: res.OutputPath,
		LogTail:      tail,
	}, nil
}

// TailLines returns up to n trailing lines of the named file.
func TailLines(fs afero.Fs, path string, n int) ([]string, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return lines, nil
}
