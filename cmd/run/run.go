// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/prefbatch/internal/batchspec"
	"github.com/matt-FFFFFF/prefbatch/internal/controller"
	"github.com/matt-FFFFFF/prefbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/prefbatch/internal/jobcmd"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	batchFileFlag     = "batchfile"
	outDirFlag        = "outdir"
	summaryPrefixFlag = "summaryprefix"
	ncpusFlag         = "ncpus"
	programFlag       = "program"
	plotProgramFlag   = "plot-program"
	noAvgFlag         = "no-avgprefs"
	noCorrFlag        = "no-corr"
	useExistingFlag   = "use-existing"
	optionsFileFlag   = "options"
	optFlag           = "opt"

	allCoresSentinel = -1
	cliExitStr       = ""
)

var (
	// ErrGetBatchFile is returned when the batch file cannot be fetched.
	ErrGetBatchFile = fmt.Errorf("failed to get batch file")
	// ErrReadOptionsFile is returned when the forwarded-options file cannot be read.
	ErrReadOptionsFile = fmt.Errorf("failed to read options file")
)

// RunCmd is the command that runs the analysis program across a batch of samples.
var RunCmd = &cli.Command{
	Name: "run",
	Description: `Run the per-sample analysis program for every sample in a batch table,
then average the per-sample preference tables and plot their pairwise correlation.

The batch table is CSV with a header row. Columns name, pre and post are required;
supply either an err column, or both errpre and errpost, to enable error control.

Batch file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.
`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    batchFileFlag,
			Aliases: []string{"b"},
			Usage: "URL of the CSV batch table describing the samples. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources.",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     outDirFlag,
			Aliases:  []string{"o"},
			Usage:    "Directory for per-sample and summary artifacts",
			Value:    ".",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     summaryPrefixFlag,
			Aliases:  []string{"s"},
			Usage:    "File name prefix for the summary artifacts",
			Value:    "summary",
			OnlyOnce: true,
		},
		&cli.IntFlag{
			Name: ncpusFlag,
			Usage: "Total CPU budget for the batch. " +
				"-1 means all available cores; a positive value is capped at the available cores.",
			Value:    allCoresSentinel,
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     programFlag,
			Usage:    "Per-sample analysis executable",
			Value:    "prefs-infer",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     plotProgramFlag,
			Usage:    "Executable that renders the correlation heatmap",
			Value:    "prefs-corrplot",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:        noAvgFlag,
			Usage:       "Do not write the average-preferences table",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        noCorrFlag,
			Usage:       "Do not compute the correlation matrix or render its plot",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        useExistingFlag,
			Usage:       "Exit successfully without dispatching anything if all enabled summary artifacts already exist",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.StringFlag{
			Name:      optionsFileFlag,
			Usage:     "YAML file of extra options forwarded verbatim to the analysis program",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringSliceFlag{
			Name: optFlag,
			Usage: "Extra option forwarded to the analysis program as flag=value[,value...]. " +
				"Specify multiple times for multiple options.",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	url := cmd.String(batchFileFlag)
	if url == "" {
		logger.Error("Please specify the batch table URL using the --batchfile or -b flag.")
		return cli.Exit(cliExitStr, 1)
	}

	bytes, err := getURL(ctx, url)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to get batch file %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	batch, err := batchspec.Load(bytes)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load batch file %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	forward, err := forwardedOptions(cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	opts := jobcmd.GlobalOptions{
		Program:       cmd.String(programFlag),
		PlotProgram:   cmd.String(plotProgramFlag),
		OutDir:        cmd.String(outDirFlag),
		BatchFile:     url,
		SummaryPrefix: cmd.String(summaryPrefixFlag),
		NCPUs:         cmd.Int(ncpusFlag),
		NoAvg:         cmd.Bool(noAvgFlag),
		NoCorr:        cmd.Bool(noCorrFlag),
		UseExisting:   cmd.Bool(useExistingFlag),
		Forward:       forward,
	}

	ctrl := controller.New(afero.NewOsFs(), opts, batch)

	if err := ctrl.Run(ctx); err != nil {
		logger.Error("batch failed", "error", err, "log", ctrl.LogPath())
		return cli.Exit(cliExitStr, 1)
	}

	logger.Info("batch committed", "samples", len(batch.Samples), "log", ctrl.LogPath())

	return nil
}

// forwardedOptions resolves the pass-through options for the analysis
// program: the YAML options file first, then any --opt flags in order.
func forwardedOptions(cmd *cli.Command) ([]jobcmd.ForwardOption, error) {
	var forward []jobcmd.ForwardOption

	if path := cmd.String(optionsFileFlag); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrReadOptionsFile, err)
		}

		forward, err = jobcmd.OptionsFromYAML(b)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	for _, raw := range cmd.StringSlice(optFlag) {
		opt, err := jobcmd.ParseForward(raw)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		forward = append(forward, opt)
	}

	return forward, nil
}

// getURL retrieves the content from the specified URL using Hashicorp's go-getter.
// It removes the temporary file after reading its content.
func getURL(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrGetBatchFile
	}

	tmpDir, err := os.MkdirTemp("", "prefbatch-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetBatchFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetBatchFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string
	// If it's not a local file URL, we need to download the directory and read the file from there
	// https://github.com/hashicorp/go-getter/issues/98
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, errors.Join(ErrGetBatchFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(url)
		if newURL == "" || fileName == "" {
			return nil, fmt.Errorf("%w: invalid URL format: %s", ErrGetBatchFile, url)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(url)
		fileName = filepath.Base(url)
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetBatchFile, err)
	}

	bytes, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, errors.Join(ErrGetBatchFile, err)
	}

	return bytes, nil
}

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // Minimum parts in a go-getter URL: scheme, host, and path
)

// splitFileNameFromGetterURL splits the URL into the directory and file name.
// It returns the new getter URL without the file name and the file name itself.
// It will append any ref query parameter to the new URL if it exists.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref, fileName string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	if strings.Contains(parts[len(parts)-1], goGetterRefSeparator) {
		refSplit := strings.Split(parts[len(parts)-1], goGetterRefSeparator)
		if len(refSplit) > 1 {
			ref = strings.Join(refSplit[1:], "")
		}

		parts[len(parts)-1] = refSplit[0]
	}

	if filepath.Clean(parts[len(parts)-1]) == filepath.Dir(parts[len(parts)-1]) {
		return "", ""
	}

	fileName = filepath.Base(parts[len(parts)-1])
	parts[len(parts)-1] = filepath.Dir(parts[len(parts)-1])

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1] // Remove the last part which is the file name
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
