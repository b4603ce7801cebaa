// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package render

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/matt-FFFFFF/prefbatch/internal/scheduler"
)

// DatatypePrefs is the datatype tag for preference-table heatmaps.
const DatatypePrefs = "preferences"

// ErrRender is returned when the external plot program fails.
var ErrRender = errors.New("correlation plot rendering failed")

// Renderer draws the correlation heatmap from the per-sample tables.
type Renderer interface {
	CorrPlot(ctx context.Context, names, tablePaths []string, outPath, datatype string) error
}

var (
	_ Renderer = (*CommandRenderer)(nil)
	_ Renderer = (*Noop)(nil)
)

// CommandRenderer delegates rendering to an external plot program, invoked
// with the sample names, their table paths, the target image path and the
// datatype tag.
type CommandRenderer struct {
	Program string
	Runner  scheduler.Runner
}

// CorrPlot implements the Renderer interface for CommandRenderer.
func (r *CommandRenderer) CorrPlot(
	ctx context.Context,
	names, tablePaths []string,
	outPath, datatype string,
) error {
	args := slices.Concat(
		[]string{"--datatype", datatype, "--out", outPath, "--names"},
		names,
		[]string{"--tables"},
		tablePaths,
	)

	res := r.Runner.Run(ctx, scheduler.Job{
		Sample:     "corrplot",
		Path:       r.Program,
		Args:       args,
		OutputPath: outPath,
	})

	if res.Err != nil {
		return errors.Join(ErrRender, res.Err)
	}

	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited %d: %s",
			ErrRender, r.Program, res.ExitCode, string(res.StdErr))
	}

	return nil
}

// Noop is a renderer that draws nothing. Used when the correlation plot is
// suppressed and in tests.
type Noop struct{}

// CorrPlot implements the Renderer interface for Noop.
func (n *Noop) CorrPlot(_ context.Context, _, _ []string, _, _ string) error {
	return nil
}
