// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package prefs

import (
	"fmt"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/floats"
)

// Average computes the elementwise arithmetic mean of the samples'
// preference tables. Every table must share the site set and character
// alphabet of the first; the result keeps that shape with sites ascending.
// Standard IEEE double arithmetic throughout.
func Average(fs afero.Fs, samples []Sample) (*Table, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	var acc *Table

	for _, s := range samples {
		t, err := Read(fs, s.Path)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", s.Name, err)
		}

		if acc == nil {
			acc = t
			continue
		}

		if !acc.SameShape(t) {
			return nil, fmt.Errorf("%w: sample %q does not match sample %q",
				ErrShapeMismatch, s.Name, samples[0].Name)
		}

		for i := range acc.Data {
			floats.Add(acc.Data[i], t.Data[i])
		}
	}

	scale := 1 / float64(len(samples))
	for i := range acc.Data {
		floats.Scale(scale, acc.Data[i])
	}

	return acc, nil
}
