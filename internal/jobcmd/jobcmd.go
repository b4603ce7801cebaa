// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobcmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/matt-FFFFFF/prefbatch/internal/batchspec"
)

var (
	// ErrReservedOption is returned when a forwarded option collides with an
	// orchestration-only or per-sample flag.
	ErrReservedOption = errors.New("option is managed by the orchestrator and cannot be forwarded")
	// ErrMalformedOption is returned when a forwarded option string cannot be parsed.
	ErrMalformedOption = errors.New("malformed option, expected flag=value[,value...]")
	// ErrParseOptionsFile is returned when the forwarded-options YAML file cannot be parsed.
	ErrParseOptionsFile = errors.New("failed to parse options file")
)

// reservedFlags are flags the orchestrator owns. They are either set per
// sample by BuildArgs or consumed by the batch pipeline and never forwarded.
var reservedFlags = map[string]struct{}{
	"name":          {},
	"pre":           {},
	"post":          {},
	"err":           {},
	"ncpus":         {},
	"outdir":        {},
	"batchfile":     {},
	"summaryprefix": {},
	"program":       {},
	"plot-program":  {},
	"no-avgprefs":   {},
	"no-corr":       {},
	"use-existing":  {},
}

// ForwardOption is one recognized pass-through option for the per-sample
// program. List values become separate tokens after the flag.
type ForwardOption struct {
	Flag   string
	Values []string
}

// GlobalOptions is the resolved run configuration. It enumerates every
// recognized option and whether it is forwarded to the per-sample program or
// consumed by the orchestrator.
type GlobalOptions struct {
	Program       string // per-sample analysis executable
	PlotProgram   string // correlation heatmap renderer executable
	OutDir        string // output directory, forwarded as --outdir
	BatchFile     string // orchestration-only
	SummaryPrefix string // orchestration-only
	NCPUs         int    // orchestration-only total CPU budget request
	NoAvg         bool   // suppress the average-preferences table
	NoCorr        bool   // suppress the correlation matrix and plot
	UseExisting   bool   // short-circuit when summary artifacts pre-exist
	Forward       []ForwardOption
}

// BuildArgs is a pure function turning one sample row plus the global options
// into the argument vector for the per-sample program. The executable name
// itself is not included.
func BuildArgs(
	s batchspec.SampleSpec,
	model batchspec.ErrorModel,
	opts GlobalOptions,
	cpuShare int,
) []string {
	args := []string{
		"--name", s.Name,
		"--pre", s.Pre,
		"--post", s.Post,
		"--ncpus", strconv.Itoa(cpuShare),
	}

	switch model {
	case batchspec.ErrorModelSame:
		args = append(args, "--err", s.Err, s.Err)
	case batchspec.ErrorModelDifferent:
		args = append(args, "--err", s.ErrPre, s.ErrPost)
	case batchspec.ErrorModelNone:
		// no error-control datasets
	}

	if opts.OutDir != "" {
		args = append(args, "--outdir", opts.OutDir)
	}

	for _, opt := range opts.Forward {
		args = append(args, "--"+opt.Flag)
		args = append(args, opt.Values...)
	}

	return args
}

// ParseForward parses a single command-line forwarded option of the form
// "flag=value" or "flag=value1,value2".
func ParseForward(raw string) (ForwardOption, error) {
	flag, values, ok := strings.Cut(raw, "=")

	flag = strings.TrimSpace(strings.TrimPrefix(flag, "--"))
	if !ok || flag == "" || values == "" {
		return ForwardOption{}, fmt.Errorf("%w: %q", ErrMalformedOption, raw)
	}

	if _, reserved := reservedFlags[flag]; reserved {
		return ForwardOption{}, fmt.Errorf("%w: %q", ErrReservedOption, flag)
	}

	split := strings.Split(values, ",")
	for i, v := range split {
		split[i] = strings.TrimSpace(v)
	}

	return ForwardOption{Flag: flag, Values: split}, nil
}

// OptionsFromYAML parses forwarded options from a YAML mapping of flag names
// to scalar or list values, preserving the file's ordering. Values keep their
// source text, so a numeric option written as 1.0 is forwarded as "1.0", not
// a round-tripped "1".
func OptionsFromYAML(b []byte) ([]ForwardOption, error) {
	f, err := parser.ParseBytes(b, 0)
	if err != nil {
		return nil, errors.Join(ErrParseOptionsFile, err)
	}

	if len(f.Docs) == 0 || f.Docs[0].Body == nil {
		return nil, nil
	}

	var pairs []*ast.MappingValueNode

	switch body := f.Docs[0].Body.(type) {
	case *ast.MappingNode:
		pairs = body.Values
	case *ast.MappingValueNode:
		// A single-entry mapping parses as a bare key/value node.
		pairs = []*ast.MappingValueNode{body}
	default:
		return nil, fmt.Errorf("%w: top level must be a mapping of flag names to values",
			ErrParseOptionsFile)
	}

	opts := make([]ForwardOption, 0, len(pairs))

	for _, pair := range pairs {
		flag := strings.TrimPrefix(pair.Key.GetToken().Value, "--")
		if _, reserved := reservedFlags[flag]; reserved {
			return nil, fmt.Errorf("%w: %q", ErrReservedOption, flag)
		}

		values, err := scalarValues(pair.Value)
		if err != nil {
			return nil, err
		}

		opts = append(opts, ForwardOption{Flag: flag, Values: values})
	}

	return opts, nil
}

// scalarValues returns the lexical text of a scalar node or of each element
// of a sequence of scalars.
func scalarValues(n ast.Node) ([]string, error) {
	seq, ok := n.(*ast.SequenceNode)
	if !ok {
		switch n.(type) {
		case *ast.MappingNode, *ast.MappingValueNode:
			return nil, fmt.Errorf("%w: values must be scalars or lists of scalars",
				ErrParseOptionsFile)
		}

		return []string{n.GetToken().Value}, nil
	}

	values := make([]string, len(seq.Values))

	for i, e := range seq.Values {
		switch e.(type) {
		case *ast.SequenceNode, *ast.MappingNode, *ast.MappingValueNode:
			return nil, fmt.Errorf("%w: values must be scalars or lists of scalars",
				ErrParseOptionsFile)
		}

		values[i] = e.GetToken().Value
	}

	return values, nil
}
