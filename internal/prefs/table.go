// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package prefs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/spf13/afero"
)

var (
	// ErrParseTable is returned when a preference table file cannot be parsed.
	ErrParseTable = errors.New("failed to parse preference table")
	// ErrShapeMismatch is returned when tables do not share the same site set
	// and character alphabet.
	ErrShapeMismatch = errors.New("preference tables have different shapes")
	// ErrNoSamples is returned when aggregation is requested over zero samples.
	ErrNoSamples = errors.New("no samples to aggregate")
)

// Sample pairs a sample name with the path of its preference table artifact.
type Sample struct {
	Name string
	Path string
}

// Table is one per-sample preference table: Data[i][j] holds the value for
// Sites[i] and Chars[j]. Sites are ascending; Chars keep the file's column
// order.
type Table struct {
	Sites []int
	Chars []string
	Data  [][]float64
}

// Read loads a preference table from a CSV file with a "site" column followed
// by one column per character. Rows are sorted by ascending site.
func Read(fs afero.Fs, path string) (*Table, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Join(ErrParseTable, err)
	}

	r := csv.NewReader(bytes.NewReader(b))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Join(ErrParseTable, err)
	}

	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: %s: need a header and at least one site row", ErrParseTable, path)
	}

	t := &Table{
		Chars: records[0][1:],
		Sites: make([]int, 0, len(records)-1),
		Data:  make([][]float64, 0, len(records)-1),
	}

	for _, rec := range records[1:] {
		if len(rec) != len(records[0]) {
			return nil, fmt.Errorf("%w: %s: ragged row %q", ErrParseTable, path, rec)
		}

		site, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad site %q", ErrParseTable, path, rec[0])
		}

		row := make([]float64, len(rec)-1)

		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: bad value %q at site %d", ErrParseTable, path, cell, site)
			}

			row[j] = v
		}

		t.Sites = append(t.Sites, site)
		t.Data = append(t.Data, row)
	}

	t.sortBySite()

	return t, nil
}

// SameShape reports whether two tables share the same site sequence and
// character alphabet.
func (t *Table) SameShape(o *Table) bool {
	return slices.Equal(t.Sites, o.Sites) && slices.Equal(t.Chars, o.Chars)
}

// Flatten returns the table values as one vector in the shared deterministic
// order: ascending site, then character column order.
func (t *Table) Flatten() []float64 {
	flat := make([]float64, 0, len(t.Sites)*len(t.Chars))
	for _, row := range t.Data {
		flat = append(flat, row...)
	}

	return flat
}

// WriteCSV writes the table in the same CSV layout Read consumes.
func (t *Table) WriteCSV(fs afero.Fs, path string) error {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := slices.Concat([]string{"site"}, t.Chars)
	if err := w.Write(header); err != nil {
		return err //nolint:wrapcheck
	}

	for i, site := range t.Sites {
		rec := make([]string, 0, len(t.Chars)+1)
		rec = append(rec, strconv.Itoa(site))

		for _, v := range t.Data[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}

		if err := w.Write(rec); err != nil {
			return err //nolint:wrapcheck
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return err //nolint:wrapcheck
	}

	return afero.WriteFile(fs, path, buf.Bytes(), 0o644) //nolint:wrapcheck
}

func (t *Table) sortBySite() {
	idx := make([]int, len(t.Sites))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool { return t.Sites[idx[a]] < t.Sites[idx[b]] })

	sites := make([]int, len(t.Sites))
	data := make([][]float64, len(t.Data))

	for i, j := range idx {
		sites[i] = t.Sites[j]
		data[i] = t.Data[j]
	}

	t.Sites = sites
	t.Data = data
}
