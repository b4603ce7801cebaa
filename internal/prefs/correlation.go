// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package prefs

import (
	"fmt"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix computes the pairwise Pearson correlation between the samples'
// preference tables, flattened in the shared (site, character) order. The
// matrix is symmetric over the samples in their given order. The diagonal is
// fixed at 1.0 rather than computed, so a constant table still correlates
// perfectly with itself. If a sample's vector has zero variance its
// coefficient with any other sample is NaN, as gonum reports it.
func CorrMatrix(fs afero.Fs, samples []Sample) (*mat.SymDense, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	vectors := make([][]float64, len(samples))

	var first *Table

	for i, s := range samples {
		t, err := Read(fs, s.Path)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", s.Name, err)
		}

		if first == nil {
			first = t
		} else if !first.SameShape(t) {
			return nil, fmt.Errorf("%w: sample %q does not match sample %q",
				ErrShapeMismatch, s.Name, samples[0].Name)
		}

		vectors[i] = t.Flatten()
	}

	m := mat.NewSymDense(len(samples), nil)

	for i := range samples {
		m.SetSym(i, i, 1.0)

		for j := i + 1; j < len(samples); j++ {
			m.SetSym(i, j, stat.Correlation(vectors[i], vectors[j], nil))
		}
	}

	return m, nil
}
