// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batchspec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gocarina/gocsv"
)

var (
	// ErrConfig is returned when the batch description table is invalid.
	ErrConfig = errors.New("invalid batch specification")
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = fmt.Errorf("%w: header must contain name, pre and post columns", ErrConfig)
	// ErrInvalidName is returned when a sample name fails the naming rules.
	ErrInvalidName = fmt.Errorf("%w: invalid sample name", ErrConfig)
	// ErrDuplicateName is returned when two rows share a sample name.
	ErrDuplicateName = fmt.Errorf("%w: duplicate sample name", ErrConfig)
	// ErrInconsistentErrCols is returned when only one of errpre/errpost is present.
	ErrInconsistentErrCols = fmt.Errorf(
		"%w: errpre and errpost columns must be supplied together", ErrConfig)
	// ErrConflictingErrCols is returned when err is combined with errpre/errpost.
	ErrConflictingErrCols = fmt.Errorf(
		"%w: err column cannot be combined with errpre or errpost", ErrConfig)
	// ErrEmptyTable is returned when the table contains no sample rows.
	ErrEmptyTable = fmt.Errorf("%w: no sample rows", ErrConfig)
)

// nameRegex defines the allowed sample names. Names become file name stems
// for per-sample artifacts, so path separators and whitespace are excluded.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ErrorModel describes which error-control columns the batch supplies.
// It is derived once from the table header and applies to every row.
type ErrorModel int

const (
	// ErrorModelNone means no error-control datasets are supplied.
	ErrorModelNone ErrorModel = iota
	// ErrorModelSame means one err dataset controls both pre and post.
	ErrorModelSame
	// ErrorModelDifferent means separate errpre and errpost datasets.
	ErrorModelDifferent
)

// String implements the Stringer interface for ErrorModel.
func (m ErrorModel) String() string {
	switch m {
	case ErrorModelNone:
		return "none"
	case ErrorModelSame:
		return "same"
	case ErrorModelDifferent:
		return "different"
	default:
		return "unknown"
	}
}

// SampleSpec is one row of the batch description table. Immutable once loaded.
type SampleSpec struct {
	Name    string `csv:"name"`
	Pre     string `csv:"pre"`
	Post    string `csv:"post"`
	Err     string `csv:"err"`
	ErrPre  string `csv:"errpre"`
	ErrPost string `csv:"errpost"`
}

// BatchTable is the validated batch description: sample rows in file order
// plus the single ErrorModel that applies to all of them.
type BatchTable struct {
	Samples    []SampleSpec
	ErrorModel ErrorModel
}

// Names returns the sample names in table order.
func (t *BatchTable) Names() []string {
	names := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		names[i] = s.Name
	}

	return names
}

// Load parses and validates a batch description table.
// Cells and header names are whitespace-trimmed. The header must be a
// superset of {name, pre, post}; the ErrorModel is derived from which
// error-control columns are present. Names must be unique and match the
// naming rules.
func Load(b []byte) (*BatchTable, error) {
	header, err := readHeader(b)
	if err != nil {
		return nil, err
	}

	model, err := errorModelFromHeader(header)
	if err != nil {
		return nil, err
	}

	rows := []*SampleSpec{}

	gocsv.SetHeaderNormalizer(strings.TrimSpace)
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.TrimLeadingSpace = true
		r.LazyQuotes = true

		return r
	})

	if err := gocsv.UnmarshalBytes(b, &rows); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	table := &BatchTable{
		Samples:    make([]SampleSpec, 0, len(rows)),
		ErrorModel: model,
	}
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		s := trimmed(*row)

		if !nameRegex.MatchString(s.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, s.Name)
		}

		if _, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
		}

		seen[s.Name] = struct{}{}
		table.Samples = append(table.Samples, s)
	}

	return table, nil
}

func readHeader(b []byte) (map[string]struct{}, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	record, err := r.Read()
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	header := make(map[string]struct{}, len(record))
	for _, h := range record {
		header[strings.TrimSpace(h)] = struct{}{}
	}

	return header, nil
}

func errorModelFromHeader(header map[string]struct{}) (ErrorModel, error) {
	for _, required := range []string{"name", "pre", "post"} {
		if _, ok := header[required]; !ok {
			return ErrorModelNone, ErrMissingColumns
		}
	}

	_, hasErr := header["err"]
	_, hasErrPre := header["errpre"]
	_, hasErrPost := header["errpost"]

	switch {
	case hasErr && (hasErrPre || hasErrPost):
		return ErrorModelNone, ErrConflictingErrCols
	case hasErr:
		return ErrorModelSame, nil
	case hasErrPre && hasErrPost:
		return ErrorModelDifferent, nil
	case hasErrPre || hasErrPost:
		return ErrorModelNone, ErrInconsistentErrCols
	default:
		return ErrorModelNone, nil
	}
}

func trimmed(s SampleSpec) SampleSpec {
	return SampleSpec{
		Name:    strings.TrimSpace(s.Name),
		Pre:     strings.TrimSpace(s.Pre),
		Post:    strings.TrimSpace(s.Post),
		Err:     strings.TrimSpace(s.Err),
		ErrPre:  strings.TrimSpace(s.ErrPre),
		ErrPost: strings.TrimSpace(s.ErrPost),
	}
}
