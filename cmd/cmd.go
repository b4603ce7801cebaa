// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"os"

	"github.com/matt-FFFFFF/prefbatch"
	"github.com/matt-FFFFFF/prefbatch/cmd/run"
	"github.com/urfave/cli/v3"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "prefbatch",
	Version:   prefbatch.Version,
	Description: `Prefbatch runs a preference-inference program across a batch of samples.
It computes per-job CPU shares, dispatches every sample's analysis with bounded
concurrency, validates each job's output, and aggregates the per-sample
preference tables into an averaged table and a pairwise correlation heatmap.
Any failure rolls the whole batch back, preserving only the run log.`,
	Usage:     "prefbatch run --batchfile samples.csv --outdir results",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}
