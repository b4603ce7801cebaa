// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/prefbatch/internal/ctxlog"
)

const maxBufferSize = 8 * 1024 * 1024 // 8MB

var (
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrBufferOverflow is returned when the output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrExecutableNotFound is returned when the executable cannot be resolved on PATH.
	ErrExecutableNotFound = errors.New("executable not found")
)

// Job describes one external per-sample invocation. It is owned by the pool
// until the job completes; the JobResult then passes to the result validator.
type Job struct {
	Sample     string            // Sample name, unique within the batch
	Path       string            // Executable name or path
	Args       []string          // Arguments, not including the executable name
	Cwd        string            // Working directory, empty for inherited
	Env        map[string]string // Extra environment variables
	CPUShare   int               // Advisory core count passed to the program
	OutputPath string            // Expected output artifact
	LogPath    string            // Expected diagnostic log
}

// JobResult is the outcome of one external job. A non-nil Err means the
// process could not be run at all; a non-zero ExitCode means it ran and
// failed. Whether the job actually produced its artifact is decided later by
// the result validator.
type JobResult struct {
	Sample     string
	ExitCode   int
	Err        error
	StdOut     []byte
	StdErr     []byte
	OutputPath string
	LogPath    string
}

// Runner executes one external job synchronously.
type Runner interface {
	Run(ctx context.Context, job Job) JobResult
}

var _ Runner = (*ProcessRunner)(nil)

// ProcessRunner runs jobs as OS processes, capturing stdout and stderr.
type ProcessRunner struct{}

// Run implements the Runner interface for ProcessRunner. The worker blocks
// until the external process exits; no timeout is imposed.
func (pr *ProcessRunner) Run(ctx context.Context, job Job) JobResult {
	logger := ctxlog.Logger(ctx).With("sample", job.Sample)
	logger.Debug("job info", "path", job.Path, "cwd", job.Cwd, "args", job.Args)

	res := JobResult{
		Sample:     job.Sample,
		OutputPath: job.OutputPath,
		LogPath:    job.LogPath,
	}

	path, err := resolvePath(job.Path)
	if err != nil {
		res.Err = err
		res.ExitCode = -1

		return res
	}

	env := os.Environ()
	for k, v := range job.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		res.Err = errors.Join(ErrFailedToCreatePipe, err)
		res.ExitCode = -1

		return res
	}

	defer rOut.Close() //nolint:errcheck

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = wOut.Close()

		res.Err = errors.Join(ErrFailedToCreatePipe, err)
		res.ExitCode = -1

		return res
	}

	defer rErr.Close() //nolint:errcheck

	execName := filepath.Base(path)
	args := slices.Concat([]string{execName}, job.Args)

	logger.Debug("starting process")

	ps, err := os.StartProcess(path, args, &os.ProcAttr{
		Dir:   job.Cwd,
		Env:   env,
		Files: []*os.File{os.Stdin, wOut, wErr},
	})
	if err != nil {
		_ = wOut.Close()
		_ = wErr.Close()

		res.Err = errors.Join(ErrCouldNotStartProcess, err)
		res.ExitCode = -1

		return res
	}

	logger.Debug("process started", "pid", ps.Pid)

	state, psErr := ps.Wait()

	_ = wOut.Close()
	_ = wErr.Close()

	res.Err = psErr
	res.ExitCode = -1

	if state != nil {
		res.ExitCode = state.ExitCode()
	}

	logger.Debug("process finished", "exitCode", res.ExitCode)

	// A truncated capture is not a job failure; the output artifact on disk
	// decides that.
	stdout, err := readAllUpToMax(ctx, rOut, maxBufferSize)

	res.StdOut = stdout
	if errors.Is(err, ErrBufferOverflow) {
		logger.Warn("stdout truncated", "maxBytes", maxBufferSize)
	} else if err != nil {
		res.Err = errors.Join(res.Err, err)
	}

	stderr, err := readAllUpToMax(ctx, rErr, maxBufferSize)

	res.StdErr = stderr
	if errors.Is(err, ErrBufferOverflow) {
		logger.Warn("stderr truncated", "maxBytes", maxBufferSize)
	} else if err != nil {
		res.Err = errors.Join(res.Err, err)
	}

	return res
}

// resolvePath resolves a bare executable name against PATH; explicit paths
// are returned as-is.
func resolvePath(path string) (string, error) {
	if strings.ContainsRune(path, os.PathSeparator) {
		return path, nil
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrExecutableNotFound, path, err)
	}

	return resolved, nil
}

func readAllUpToMax(ctx context.Context, r io.Reader, maxBufferSize int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBufferSize+1)
	if err != nil && err != io.EOF {
		return nil, errors.Join(ErrFailedToReadBuffer, err)
	}

	if n > maxBufferSize {
		ctxlog.Logger(ctx).Debug(
			"buffer overflow in readAllUpToMax",
			"bytesRead", n,
			"maxBytes", maxBufferSize,
		)

		return buf.Bytes()[:maxBufferSize], ErrBufferOverflow
	}

	return buf.Bytes(), nil
}
